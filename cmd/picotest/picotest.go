package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/picobldc"
)

// Spins both wheels slowly and prints battery, tachos and errors.
func main() {
	fmt.Println("Pico-BLDC test program")
	cfg, err := hardware.LoadConfigFromEnv()
	if err != nil {
		panic(err)
	}
	pico, err := picobldc.Open(cfg.I2CBus, cfg.MotorBoardAddr)
	if err != nil {
		panic(err)
	}
	defer pico.Close()
	fmt.Println("Opened Pico-BLDC. Enabling watchdog...")

	if err := pico.SetWatchdog(time.Second); err != nil {
		panic(err)
	}
	fmt.Println("Watchdog enabled.")
	if err := pico.ZeroTachos(); err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pico.Loop(ctx, 50*time.Millisecond)

	var motors [picobldc.NumChannels]*picobldc.Motor
	for ch := range motors {
		if motors[ch], err = pico.Motor(ch); err != nil {
			panic(err)
		}
		motors[ch].SetAcceleration(150)
		motors[ch].SetSpeed(90)
		motors[ch].Forward()
	}

	for {
		battV, _ := pico.BattVolts()
		fmt.Printf("%.2fV", battV)
		for ch, m := range motors {
			fmt.Printf(" m%d: tacho=%d moving=%v err=%v", ch, m.TachoCount(), m.IsMoving(), m.Err())
		}
		fmt.Println()
		time.Sleep(500 * time.Millisecond)
	}
}
