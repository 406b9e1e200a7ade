// Package teleop drives the robot from a joystick: the left stick steers, the
// right stick sets forward speed.
package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/chassis"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/screen"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/sound"
	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/tunable"
)

// Drive is the part of diffdrive.Controller that teleop uses.
type Drive interface {
	SetSpeeds(forward, rotation float64) error
	Stop(ctx context.Context) error
	DisplacementAndHeading() (displacement, heading float64)
}

const (
	UpdateInterval = 50 * time.Millisecond

	throttleExpo = 1.6
	yawExpo      = 2.5
)

type Mode struct {
	drive Drive

	Tunables    tunable.Tunables
	maxForward  *tunable.Tunable
	maxRotation *tunable.Tunable

	cancel         context.CancelFunc
	stopWG         sync.WaitGroup
	joystickEvents chan *joystick.Event
}

func New(drive Drive) *Mode {
	m := &Mode{
		drive:          drive,
		joystickEvents: make(chan *joystick.Event),
	}
	m.maxForward = m.Tunables.Create("max forward cm/s", 20, 0, 60, 5)
	m.maxRotation = m.Tunables.Create("max rotation deg/s", 90, 0, 360, 15)
	return m
}

func (m *Mode) Name() string {
	return "Teleop"
}

func (m *Mode) StartupSound() string {
	return sound.CueStart
}

func (m *Mode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	screen.SetMode(m.Name())
	go m.loop(loopCtx)
}

// Stop ends the mode and stops the robot.  It does nothing if the mode was
// never started.
func (m *Mode) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.stopWG.Wait()
}

// OnJoystickEvent hands an event to the mode's loop.  It blocks until the
// loop takes it, or the mode stops.
func (m *Mode) OnJoystickEvent(event *joystick.Event) {
	select {
	case m.joystickEvents <- event:
	case <-time.After(UpdateInterval):
		fmt.Println("TELEOP: dropped joystick event", event)
	}
}

// Mix turns the stick positions into a forward speed and a rotation speed.
// Pushing the right stick up drives the robot forwards whichever way the
// motors are mounted.
func Mix(lStickX, rStickY int16, maxForward, maxRotation float64) (forward, rotation float64) {
	throttle := joystick.ApplyExpo(-joystick.Normalize(rStickY), throttleExpo)
	yaw := joystick.ApplyExpo(joystick.Normalize(lStickX), yawExpo)
	forward = throttle * maxForward * float64(chassis.ForwardTravelSign())
	rotation = yaw * maxRotation
	return
}

func (m *Mode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := m.drive.Stop(stopCtx); err != nil {
			fmt.Println("TELEOP: failed to stop:", err)
		}
	}()

	ticker := time.NewTicker(UpdateInterval)
	defer ticker.Stop()

	var lStickX, rStickY int16
	var lastFwd, lastRot float64
	sent := false

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-m.joystickEvents:
			switch event.Type {
			case joystick.EventTypeAxis:
				switch event.Number {
				case joystick.AxisLStickX:
					lStickX = event.Value
				case joystick.AxisRStickY:
					rStickY = event.Value
				case joystick.AxisDPadY:
					if event.Value < 0 {
						m.Tunables.Current().Increase()
					} else if event.Value > 0 {
						m.Tunables.Current().Decrease()
					}
				}
			case joystick.EventTypeButton:
				if !event.Pressed() {
					continue
				}
				switch event.Number {
				case joystick.ButtonL1:
					m.Tunables.SelectPrev()
				case joystick.ButtonR1:
					m.Tunables.SelectNext()
				case joystick.ButtonCross:
					fmt.Println("TELEOP: emergency stop")
					lStickX, rStickY = 0, 0
					if err := m.drive.Stop(ctx); err != nil {
						fmt.Println("TELEOP: failed to stop:", err)
					}
					lastFwd, lastRot, sent = 0, 0, true
				}
			}
		case <-ticker.C:
			fwd, rot := Mix(lStickX, rStickY,
				float64(m.maxForward.Get()), float64(m.maxRotation.Get()))
			if !sent || fwd != lastFwd || rot != lastRot {
				if err := m.drive.SetSpeeds(fwd, rot); err != nil {
					fmt.Println("TELEOP: failed to set speeds:", err)
				} else {
					lastFwd, lastRot, sent = fwd, rot, true
					screen.SetSpeeds(fwd, rot)
				}
			}
			screen.SetPose(m.drive.DisplacementAndHeading())
		}
	}
}
