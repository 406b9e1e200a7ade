package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/joystick"
)

func main() {
	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	jDev := os.Getenv("JOYSTICK_DEVICE")
	if jDev == "" {
		jDev = "/dev/input/js0"
	}
	var j *joystick.Joystick
	firstLog := true
	for {
		var err error
		j, err = joystick.NewJoystick(jDev)
		if err == nil {
			break
		}
		if firstLog {
			fmt.Printf("Waiting for joystick: %v.\n", err)
			firstLog = false
		}
		time.Sleep(1 * time.Second)
	}

	fmt.Printf("Opened joystick\n")
	err := j.Loop(ctx, func(e *joystick.Event) {
		if e.Type == joystick.EventTypeAxis {
			fmt.Printf("%s normalized=%.3f\n", e, joystick.Normalize(e.Value))
			return
		}
		fmt.Println(e)
	})
	fmt.Printf("Joystick failed: %v\n", err)
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
