// Package joystick reads events from a Linux joystick device (/dev/input/jsN).
package joystick

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Axis values run from -32767 to +32767.  Stick "up" is negative.
//
// Buttons, as reported by a DualShock 4 on the hid-sony driver:
//
//    Cross = 0, Circle = 1, Triangle = 2, Square = 3,
//    L1 = 4, R1 = 5, L2 = 6, R2 = 7, Share = 8, Options = 9,
//    PS = 10, L stick = 11, R stick = 12
//
// L2 and R2 are also reported as axes 2 and 5.

type EventType uint8

const (
	EventTypeButton EventType = 1
	EventTypeAxis   EventType = 2

	// Set on the synthetic events the driver sends when the device is
	// opened, describing the initial state.
	eventTypeInit = 0x80
)

const (
	ButtonCross    = 0
	ButtonCircle   = 1
	ButtonTriangle = 2
	ButtonSquare   = 3
	ButtonL1       = 4
	ButtonR1       = 5
	ButtonL2       = 6
	ButtonR2       = 7
	ButtonShare    = 8
	ButtonOptions  = 9
	ButtonPS       = 10
	ButtonLStick   = 11
	ButtonRStick   = 12

	AxisLStickX = 0
	AxisLStickY = 1
	AxisRStickX = 3
	AxisRStickY = 4
	AxisDPadX   = 6
	AxisDPadY   = 7

	AxisMax = 32767
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

type Joystick struct {
	device io.ReadCloser

	deviceEpoch    uint32
	wallclockEpoch time.Time
}

// rawEvent is struct js_event from linux/joystick.h.
type rawEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

// Pressed is true for a button-down event.
func (e *Event) Pressed() bool {
	return e.Type == EventTypeButton && e.Value == 1
}

func NewJoystick(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Wrap(err, "opening joystick")
	}
	return newJoystick(f), nil
}

func newJoystick(r io.ReadCloser) *Joystick {
	return &Joystick{device: r}
}

func (j *Joystick) ReadEvent() (*Event, error) {
	var raw rawEvent
	err := binary.Read(j.device, binary.LittleEndian, &raw)
	if err != nil {
		return nil, err
	}

	if j.deviceEpoch == 0 {
		j.deviceEpoch = raw.Time
		j.wallclockEpoch = time.Now()
	}

	return &Event{
		Time:   j.wallclockEpoch.Add(time.Duration(raw.Time-j.deviceEpoch) * time.Millisecond),
		Value:  raw.Value,
		Type:   EventType(raw.Type &^ eventTypeInit),
		Number: raw.Number,
	}, nil
}

// Loop delivers events to handler until the device fails or ctx is cancelled.
// Cancelling ctx closes the device to unblock the read.
func (j *Joystick) Loop(ctx context.Context, handler func(*Event)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = j.device.Close()
	}()
	for {
		event, err := j.ReadEvent()
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return errors.Wrap(err, "reading joystick")
		}
		handler(event)
	}
}

func (j *Joystick) Close() error {
	return j.device.Close()
}

// Normalize maps a raw axis value onto [-1, 1].
func Normalize(value int16) float64 {
	return math.Max(-1, float64(value)/AxisMax)
}

// ApplyExpo flattens the response around the centre of the stick while
// keeping the end points and the sign.
func ApplyExpo(value float64, expo float64) float64 {
	return math.Copysign(math.Pow(math.Abs(value), expo), value)
}
