// Package hardware assembles the robot's motors, sensors, screen and speaker
// from a Config, either from the real devices or from simulated stand-ins.
package hardware

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/diffdrive"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/mux"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/picobldc"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/regmotor"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/screen"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/sensor"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/sound"
)

type Hardware struct {
	cfg Config

	Left, Right diffdrive.WheelMotor
	Sensors     diffdrive.Sensors

	board   *picobldc.Board
	sims    []*regmotor.Sim
	closers []io.Closer
	sounds  *sound.Player

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) (*Hardware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Hardware{cfg: cfg}
	var err error
	if cfg.Simulate {
		h.initSimulated()
	} else {
		err = h.initDevices()
	}
	if err != nil {
		h.closeAll()
		return nil, err
	}
	if cfg.SoundDir != "" {
		h.sounds = sound.NewPlayer(cfg.SoundDir)
	}
	return h, nil
}

func (h *Hardware) initSimulated() {
	fmt.Println("HW: using simulated hardware")
	left := regmotor.New("left")
	right := regmotor.New("right")
	h.sims = []*regmotor.Sim{left, right}
	h.Left, h.Right = left, right
	h.Sensors = diffdrive.Sensors{
		FrontUltrasonic: &sensor.Dummy{Name: "front", Reading: 100},
		SideUltrasonic:  &sensor.Dummy{Name: "side", Reading: 100},
		MasterLight:     &sensor.Dummy{Name: "light", Reading: 512},
	}
}

func (h *Hardware) initDevices() error {
	cfg := h.cfg

	board, err := picobldc.Open(cfg.I2CBus, cfg.MotorBoardAddr)
	if err != nil {
		return err
	}
	h.board = board
	h.closers = append(h.closers, board)
	if err := board.SetWatchdog(cfg.MotorWatchdog); err != nil {
		return err
	}
	left, err := board.Motor(cfg.LeftMotorChannel)
	if err != nil {
		return err
	}
	right, err := board.Motor(cfg.RightMotorChannel)
	if err != nil {
		return err
	}
	h.Left, h.Right = left, right

	m, err := mux.New(cfg.I2CBus, cfg.MuxAddr)
	if err != nil {
		return err
	}
	h.closers = append(h.closers, m)

	// Both rangers share an address; the mux decides which one answers.
	ranger, err := sensor.NewSRF08(cfg.I2CBus, cfg.RangerAddr)
	if err != nil {
		return err
	}
	h.closers = append(h.closers, ranger)

	light, err := sensor.NewMCP3008(cfg.LightSPIDevice, cfg.LightChannel)
	if err != nil {
		return err
	}
	h.closers = append(h.closers, light)

	h.Sensors = diffdrive.Sensors{
		FrontUltrasonic: sensor.NewMuxed(ranger, m, cfg.FrontRangerPort),
		SideUltrasonic:  sensor.NewMuxed(ranger, m, cfg.SideRangerPort),
		MasterLight:     light,
	}
	return nil
}

// Start launches the background loops: tacho polling (or the motor
// simulation) and the screen.
func (h *Hardware) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)

	for _, s := range h.sims {
		s := s
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			s.Run(ctx, regmotor.DefaultStepPeriod)
		}()
	}
	if h.board != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.board.Loop(ctx, h.cfg.TachoPollPeriod)
		}()
	}
	if h.cfg.ScreenDevice != "" {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			screen.LoopUpdatingScreen(ctx, h.cfg.ScreenDevice)
		}()
	}
}

func (h *Hardware) NewController() (*diffdrive.Controller, error) {
	c, err := diffdrive.New(h.Left, h.Right, h.Sensors, h.cfg.Geometry)
	if err != nil {
		return nil, errors.Wrap(err, "creating controller")
	}
	if h.cfg.Acceleration != diffdrive.DefaultAcceleration {
		h.Left.SetAcceleration(h.cfg.Acceleration)
		h.Right.SetAcceleration(h.cfg.Acceleration)
	}
	return c, nil
}

func (h *Hardware) Config() Config {
	return h.cfg
}

func (h *Hardware) PlaySound(cue string) {
	if h.sounds == nil {
		fmt.Println("HW: no speaker, skipping", cue)
		return
	}
	h.sounds.Play(cue)
}

// Shutdown stops both motors, waits for the background loops and releases
// the devices.
func (h *Hardware) Shutdown() {
	fmt.Println("HW: shutting down")
	if h.Left != nil {
		h.Left.Stop()
	}
	if h.Right != nil {
		h.Right.Stop()
	}
	if h.cancel != nil {
		h.cancel()
		h.wg.Wait()
	}
	if h.sounds != nil {
		h.sounds.Close()
		h.sounds = nil
	}
	h.closeAll()
}

func (h *Hardware) closeAll() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			fmt.Println("HW: close failed:", err)
		}
	}
	h.closers = nil
}
