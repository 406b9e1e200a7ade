package diffdrive

import (
	"math"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/chassis"
)

const (
	// MaxWheelSpeed is the largest speed magnitude sent to a motor.  Faster
	// requests are saturated, not scaled.
	MaxWheelSpeed = 900

	// DefaultAcceleration is the ramp configured on both motors at construction.
	DefaultAcceleration = 150
)

// Geometry holds the lengths that map wheel rotation onto robot motion.  All
// three share one unit (centimetres on the robot).
type Geometry struct {
	AxleWidth        float64 `yaml:"axle_width"`
	LeftWheelRadius  float64 `yaml:"left_wheel_radius"`
	RightWheelRadius float64 `yaml:"right_wheel_radius"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		AxleWidth:        chassis.AxleWidthCM,
		LeftWheelRadius:  chassis.WheelRadiusCM,
		RightWheelRadius: chassis.WheelRadiusCM,
	}
}

func (g Geometry) Validate() error {
	for _, l := range []struct {
		name  string
		value float64
	}{
		{"axle width", g.AxleWidth},
		{"left wheel radius", g.LeftWheelRadius},
		{"right wheel radius", g.RightWheelRadius},
	} {
		if !(l.value > 0) || math.IsInf(l.value, 1) {
			return errors.Wrapf(ErrInvalidGeometry, "%s must be positive, got %v", l.name, l.value)
		}
	}
	return nil
}

// WheelCommand is what gets sent to one motor: a direction and a non-negative
// speed no larger than MaxWheelSpeed.
type WheelCommand struct {
	Forward bool
	Speed   int
}

// RawWheelSpeeds converts a forward speed (length/s) and rotation speed
// (degrees/s) into signed wheel speeds in ticks/s, before any clamping.
func RawWheelSpeeds(g Geometry, forward, rotation float64) (left, right float64) {
	turn := rotation * g.AxleWidth * math.Pi / 360
	left = (forward + turn) * 180 / (g.LeftWheelRadius * math.Pi)
	right = (forward - turn) * 180 / (g.RightWheelRadius * math.Pi)
	return
}

// WheelSpeeds is RawWheelSpeeds turned into motor commands.  Only a strictly
// positive wheel speed selects Forward, so a wheel at rest (including
// forward=0, rotation=0) is commanded Backward at speed 0.
func WheelSpeeds(g Geometry, forward, rotation float64) (left, right WheelCommand) {
	l, r := RawWheelSpeeds(g, forward, rotation)
	return commandFor(l), commandFor(r)
}

// commandFor treats zero as backward.
func commandFor(speed float64) WheelCommand {
	cmd := WheelCommand{Forward: speed > 0}
	if !cmd.Forward {
		speed = -speed
	}
	if speed > MaxWheelSpeed {
		cmd.Speed = MaxWheelSpeed
	} else {
		cmd.Speed = int(speed)
	}
	return cmd
}

// TicksForDistance is the number of ticks a wheel of the given radius turns to
// roll the given distance.  The result is truncated towards zero and saturated
// to the int32 range.
func TicksForDistance(radius, distance float64) int {
	return saturateTicks((180 * distance) / (math.Pi * radius))
}

// TicksForAngle is the number of ticks each wheel turns, in opposite
// directions, for the robot to spin in place by angle degrees.
func TicksForAngle(radius, width, angle float64) int {
	return TicksForDistance(radius, math.Pi*width*angle/360)
}

// AngleForTicks inverts TicksForAngle, give or take one tick.
func AngleForTicks(radius, width float64, ticks int) float64 {
	return float64(ticks) * 2 * radius / width
}

// DistanceForTicks inverts TicksForDistance, give or take one tick.
func DistanceForTicks(radius float64, ticks int) float64 {
	return float64(ticks) * math.Pi * radius / 180
}

func saturateTicks(t float64) int {
	switch {
	case t >= math.MaxInt32:
		return math.MaxInt32
	case t <= math.MinInt32:
		return math.MinInt32
	}
	return int(t)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
