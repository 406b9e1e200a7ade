package teleop

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/joystick"
)

type fakeDrive struct {
	lock  sync.Mutex
	calls []string
}

func (f *fakeDrive) record(s string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeDrive) SetSpeeds(forward, rotation float64) error {
	f.record(fmt.Sprintf("speeds %.1f %.1f", forward, rotation))
	return nil
}

func (f *fakeDrive) Stop(ctx context.Context) error {
	f.record("stop")
	return nil
}

func (f *fakeDrive) DisplacementAndHeading() (float64, float64) {
	return 0, 0
}

func (f *fakeDrive) last() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeDrive) count(s string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == s {
			n++
		}
	}
	return n
}

func TestMix(t *testing.T) {
	fwd, rot := Mix(0, 0, 20, 90)
	assert.Equal(t, 0.0, fwd)
	assert.Equal(t, 0.0, rot)

	// Stick up is forwards, which the motors see as negative.
	fwd, rot = Mix(0, -32767, 20, 90)
	assert.Equal(t, -20.0, fwd)
	assert.Equal(t, 0.0, rot)

	fwd, rot = Mix(32767, 0, 20, 90)
	assert.Equal(t, 0.0, fwd)
	assert.Equal(t, 90.0, rot)

	_, rot = Mix(-32767, 0, 20, 90)
	assert.Equal(t, -90.0, rot)

	// Expo keeps small deflections gentle.
	_, rot = Mix(16384, 0, 20, 90)
	assert.True(t, rot > 0 && rot < 45, "rotation %v", rot)
}

func axis(n uint8, v int16) *joystick.Event {
	return &joystick.Event{Type: joystick.EventTypeAxis, Number: n, Value: v}
}

func press(n uint8) *joystick.Event {
	return &joystick.Event{Type: joystick.EventTypeButton, Number: n, Value: 1}
}

func TestModeDrivesFromSticks(t *testing.T) {
	d := &fakeDrive{}
	m := New(d)
	m.Start(context.Background())

	assert.Eventually(t, func() bool { return d.last() == "speeds 0.0 0.0" }, time.Second, 5*time.Millisecond)

	m.OnJoystickEvent(axis(joystick.AxisRStickY, -32767))
	assert.Eventually(t, func() bool { return d.last() == "speeds -20.0 0.0" }, time.Second, 5*time.Millisecond)

	// D-pad up raises the selected tunable, max forward speed.
	m.OnJoystickEvent(axis(joystick.AxisDPadY, -32767))
	assert.Eventually(t, func() bool { return d.last() == "speeds -25.0 0.0" }, time.Second, 5*time.Millisecond)

	m.OnJoystickEvent(press(joystick.ButtonCross))
	assert.Eventually(t, func() bool { return d.count("stop") == 1 }, time.Second, 5*time.Millisecond)

	m.Stop()
	assert.Equal(t, "stop", d.last())
	assert.Equal(t, 2, d.count("stop"))
}

func TestSpeedsOnlySentOnChange(t *testing.T) {
	d := &fakeDrive{}
	m := New(d)
	m.Start(context.Background())
	time.Sleep(10 * UpdateInterval)
	m.Stop()

	assert.Equal(t, 1, d.count("speeds 0.0 0.0"))
}

func TestStopBeforeStart(t *testing.T) {
	d := &fakeDrive{}
	m := New(d)
	assert.NotPanics(t, m.Stop)
	assert.Empty(t, d.calls)
}
