package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/diffdrive"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/sound"
)

var CLI struct {
	Quit QuitCmd `cmd:"" help:"Quit"`

	Forward             ForwardCmd             `cmd:"" help:"Drive straight ahead by a distance (cm) and wait."`
	Rotate              RotateCmd              `cmd:"" help:"Spin in place by an angle (degrees) and wait."`
	RotateIndependently RotateIndependentlyCmd `cmd:"" help:"Start a spin in place without waiting."`
	Speeds              SpeedsCmd              `cmd:"" help:"Set forward (cm/s) and rotation (deg/s) speeds."`
	ForwardSpeed        ForwardSpeedCmd        `cmd:"" help:"Set forward speed, keeping rotation speed."`
	RotationSpeed       RotationSpeedCmd       `cmd:"" help:"Set rotation speed, keeping forward speed."`
	TravelSpeed         TravelSpeedCmd         `cmd:"" help:"Set wheel speed (ticks/s) for forward and rotate."`
	Go                  GoCmd                  `cmd:"" help:"Drive forwards until stopped."`
	Start               StartCmd               `cmd:"" help:"Run both motors in their forward direction."`
	Stop                StopCmd                `cmd:"" help:"Stop both motors."`
	Pose                PoseCmd                `cmd:"" help:"Print displacement and heading."`
	Sensors             SensorsCmd             `cmd:"" help:"Read the rangers and light sensor."`
	Verbose             VerboseCmd             `cmd:"" help:"Toggle logging of motor commands."`
}

type Context struct {
	ctx     context.Context
	hw      *hardware.Hardware
	dd      *diffdrive.Controller
	timeout time.Duration
}

func (c *Context) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.timeout)
}

type QuitCmd struct{}

func (q *QuitCmd) Run(ctx *Context) error {
	return Quit
}

var Quit = errors.New("Quit")

type ForwardCmd struct {
	Distance float64 `arg:"" help:"Distance in cm."`
}

func (c *ForwardCmd) Run(ctx *Context) error {
	tctx, cancel := ctx.withTimeout()
	defer cancel()
	if err := ctx.dd.GoForwardDistance(tctx, c.Distance); err != nil {
		return err
	}
	ctx.hw.PlaySound(sound.CueArrived)
	return nil
}

type RotateCmd struct {
	Angle float64 `arg:"" help:"Angle in degrees."`
}

func (c *RotateCmd) Run(ctx *Context) error {
	tctx, cancel := ctx.withTimeout()
	defer cancel()
	return ctx.dd.Rotate(tctx, c.Angle)
}

type RotateIndependentlyCmd struct {
	Angle float64 `arg:"" help:"Angle in degrees."`
}

func (c *RotateIndependentlyCmd) Run(ctx *Context) error {
	return ctx.dd.RotateIndependently(c.Angle)
}

type SpeedsCmd struct {
	Forward  float64 `arg:""`
	Rotation float64 `arg:""`
}

func (c *SpeedsCmd) Run(ctx *Context) error {
	return ctx.dd.SetSpeeds(c.Forward, c.Rotation)
}

type ForwardSpeedCmd struct {
	Speed float64 `arg:""`
}

func (c *ForwardSpeedCmd) Run(ctx *Context) error {
	return ctx.dd.SetForwardSpeed(c.Speed)
}

type RotationSpeedCmd struct {
	Speed float64 `arg:""`
}

func (c *RotationSpeedCmd) Run(ctx *Context) error {
	return ctx.dd.SetRotationSpeed(c.Speed)
}

type TravelSpeedCmd struct {
	Speed int `arg:"" help:"Wheel speed in ticks/s."`
}

func (c *TravelSpeedCmd) Run(ctx *Context) error {
	ctx.dd.SetTravelSpeed(c.Speed)
	return nil
}

type GoCmd struct{}

func (c *GoCmd) Run(ctx *Context) error {
	ctx.dd.GoForward()
	return nil
}

type StartCmd struct{}

func (c *StartCmd) Run(ctx *Context) error {
	ctx.dd.Start()
	return nil
}

type StopCmd struct{}

func (c *StopCmd) Run(ctx *Context) error {
	tctx, cancel := ctx.withTimeout()
	defer cancel()
	return ctx.dd.Stop(tctx)
}

type PoseCmd struct{}

func (c *PoseCmd) Run(ctx *Context) error {
	d, h := ctx.dd.DisplacementAndHeading()
	f, r := ctx.dd.Speeds()
	fmt.Printf("displacement=%.2f heading=%.2f turning=%v speeds=(%.1f, %.1f)\n",
		d, h, ctx.dd.IsTurning(), f, r)
	return nil
}

type SensorsCmd struct{}

func (c *SensorsCmd) Run(ctx *Context) error {
	for name, s := range map[string]diffdrive.RangeSensor{
		"front": ctx.dd.FrontUltrasonicSensor(),
		"side":  ctx.dd.SideUltrasonicSensor(),
	} {
		if s == nil {
			fmt.Println(name, "ranger: not fitted")
			continue
		}
		cm, err := s.DistanceCM()
		if err != nil {
			fmt.Println(name, "ranger:", err)
			continue
		}
		fmt.Printf("%s ranger: %dcm\n", name, cm)
	}
	if l := ctx.dd.MasterLightSensor(); l != nil {
		level, err := l.LightLevel()
		if err != nil {
			return errors.Wrap(err, "reading light sensor")
		}
		fmt.Println("light:", level)
	}
	return nil
}

type VerboseCmd struct{}

func (c *VerboseCmd) Run(ctx *Context) error {
	ctx.dd.Verbose = !ctx.dd.Verbose
	fmt.Println("verbose:", ctx.dd.Verbose)
	return nil
}

// splitCommand splits a command line into arguments.  A negative number would
// otherwise be taken for a flag, so positional arguments from the first one
// onwards are marked with "--".
func splitCommand(line string) []string {
	fields := strings.Fields(line)
	for i, f := range fields {
		if !strings.HasPrefix(f, "-") {
			continue
		}
		if _, err := strconv.ParseFloat(f, 64); err == nil {
			return append(fields[:i:i], append([]string{"--"}, fields[i:]...)...)
		}
	}
	return fields
}

func main() {
	fmt.Println("---- diffdrivectl ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	k, err := kong.New(&CLI, kong.Exit(func(int) {}))
	if err != nil {
		panic(err)
	}

	cfg, err := hardware.LoadConfigFromEnv()
	if err != nil {
		panic(err)
	}
	hw, err := hardware.New(cfg)
	if err != nil {
		panic(err)
	}
	defer hw.Shutdown()

	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hw.Start(bgCtx)

	dd, err := hw.NewController()
	if err != nil {
		panic(err)
	}
	ctx := &Context{
		ctx:     bgCtx,
		hw:      hw,
		dd:      dd,
		timeout: 30 * time.Second,
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("Enter a command:")
		if !scanner.Scan() {
			break
		}
		args := splitCommand(scanner.Text())
		if len(args) == 0 {
			continue
		}
		parsed, err := k.Parse(args)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}
		err = parsed.Run(ctx)
		if err == Quit {
			break
		} else if err != nil {
			fmt.Println("ERROR:", err)
			continue
		}
	}
}
