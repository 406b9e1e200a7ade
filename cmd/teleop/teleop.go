package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/screen"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/sound"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/teleop"
)

func main() {
	fmt.Println("---- Teleop ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	cfg, err := hardware.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Bad config: %v", err)
	}
	if err := cfg.WriteInUse("/tmp/diffdrive-in-use.yaml"); err != nil {
		fmt.Println("Failed to record config:", err)
	}

	// Initialise the hardware.
	hw, err := hardware.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialise hardware: %v", err)
	}
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		hw.PlaySound(sound.CueShutdown)
		hw.Shutdown()
		time.Sleep(100 * time.Millisecond)
	}()
	hw.Start(ctx)

	dd, err := hw.NewController()
	if err != nil {
		fmt.Println("Failed to create controller:", err)
		return
	}

	// Wait for the joystick and kick off a background thread to read from it.
	joystickEvents := initJoystick(ctx, cancel)

	mode := teleop.New(dd)
	fmt.Printf("----- %s -----\n", mode.Name())
	hw.PlaySound(mode.StartupSound())
	mode.Start(ctx)

	fmt.Println("Waiting for events...")
	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Context done, stopping teleop and shutting down")
			mode.Stop()
			return
		case event, ok := <-joystickEvents:
			if !ok {
				fmt.Println("Joystick events channel closed!")
				mode.Stop()
				cancel()
				return
			}
			if event.Number == joystick.ButtonPS && event.Pressed() {
				fmt.Println("PS pressed: shutting down")
				cancel()
				continue
			}
			mode.OnJoystickEvent(event)
		case <-watchdog.C:
			d, h := dd.DisplacementAndHeading()
			fmt.Printf("Main loop still running; displacement=%.1f heading=%.1f\n", d, h)
		}
	}
}

func initJoystick(ctx context.Context, cancel context.CancelFunc) chan *joystick.Event {
	joystickEvents := make(chan *joystick.Event, 1)
	jDev := os.Getenv("JOYSTICK_DEVICE")
	if jDev == "" {
		jDev = "/dev/input/js0"
	}
	firstLog := true
	for ctx.Err() == nil {
		j, err := joystick.NewJoystick(jDev)
		if err != nil {
			if firstLog {
				screen.SetNotice("NO JOY")
				fmt.Printf("Waiting for joystick: %v.\n", err)
				firstLog = false
			}
			time.Sleep(1 * time.Second)
			continue
		}

		screen.SetNotice("")
		fmt.Printf("Opened joystick\n")
		go func() {
			defer cancel()
			defer close(joystickEvents)
			err := j.Loop(ctx, func(event *joystick.Event) {
				select {
				case joystickEvents <- event:
				case <-ctx.Done():
				}
			})
			fmt.Printf("Joystick failed: %v\n", err)
		}()
		break
	}
	return joystickEvents
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
