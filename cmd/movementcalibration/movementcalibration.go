package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/diffdrive"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/hardware"
)

const (
	calibrationDistanceCM = 50
	calibrationTurns      = 1
	travelSpeed           = 200 // Just need a slow walking speed here.
)

var scanner *bufio.Scanner

func init() {
	scanner = bufio.NewScanner(os.Stdin)
}

func readMeasurement(prompt string) (float64, error) {
	fmt.Println(prompt)
	for scanner.Scan() {
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err == nil && v > 0 {
			return v, nil
		}
		fmt.Printf("%q is not a positive number, please try again:\n", scanner.Text())
	}
	return 0, errors.Wrap(scanner.Err(), "reading measurement")
}

// suggestRadius scales a wheel radius by how far the robot really went
// compared to what the tachos claimed.
func suggestRadius(radius, claimed, measured float64) float64 {
	return radius * measured / claimed
}

// suggestWidth corrects the axle width from a commanded spin.  A robot that
// turned too far has a narrower effective axle than configured.
func suggestWidth(width, commandedDeg, measuredDeg float64) float64 {
	return width * commandedDeg / measuredDeg
}

func main() {
	fmt.Println("---- Movement Calibration ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := hardware.LoadConfigFromEnv()
	if err != nil {
		fmt.Println("Bad config:", err)
		return
	}

	// Initialise the hardware.
	hw, err := hardware.New(cfg)
	if err != nil {
		fmt.Println("Failed to initialise hardware:", err)
		return
	}
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		hw.Shutdown()
		time.Sleep(100 * time.Millisecond)
	}()
	hw.Start(ctx)

	if err := calibrate(ctx, hw, cfg); err != nil {
		fmt.Println("Calibration failed:", err)
	}
}

func calibrate(ctx context.Context, hw *hardware.Hardware, cfg hardware.Config) error {
	dd, err := hw.NewController()
	if err != nil {
		return err
	}
	dd.Verbose = true
	dd.SetTravelSpeed(travelSpeed)
	geom := dd.Geometry()

	fmt.Printf("Driving %vcm forwards...\n", calibrationDistanceCM)
	startD, _ := dd.DisplacementAndHeading()
	if err := dd.GoForwardDistance(ctx, calibrationDistanceCM); err != nil {
		return err
	}
	endD, _ := dd.DisplacementAndHeading()
	// Forward travel reads as negative displacement.
	claimed := -(endD - startD)
	measured, err := readMeasurement("Enter distance actually travelled (cm):")
	if err != nil {
		return err
	}
	radius := suggestRadius(geom.LeftWheelRadius, claimed, measured)
	fmt.Printf("Tachos claim %.2fcm; suggested wheel radius %.3f (was %.3f)\n",
		claimed, radius, geom.LeftWheelRadius)

	commanded := 360.0 * calibrationTurns
	fmt.Printf("Rotating %v degrees...\n", commanded)
	if err := dd.Rotate(ctx, commanded); err != nil {
		return err
	}
	turned, err := readMeasurement("Enter angle actually turned (degrees):")
	if err != nil {
		return err
	}
	// The spin was commanded with the old radius too.
	width := suggestWidth(geom.AxleWidth, commanded, turned) * radius / geom.LeftWheelRadius
	fmt.Printf("Suggested axle width %.2f (was %.2f)\n", width, geom.AxleWidth)

	cfg.Geometry = diffdrive.Geometry{
		AxleWidth:        width,
		LeftWheelRadius:  radius,
		RightWheelRadius: radius,
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return err
	}
	const out = "/tmp/diffdrive-calibrated.yaml"
	if err := cfg.WriteInUse(out); err != nil {
		return err
	}
	fmt.Println("Calibrated config written to", out)
	return nil
}
