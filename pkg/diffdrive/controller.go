// Package diffdrive converts motion requests for a two-wheeled differential
// drive robot into per-wheel motor commands, and wheel tacho counts back into
// displacement and heading.
//
// A Controller is not safe for concurrent use; callers serialise access.
package diffdrive

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/go-diffdrive/pkg/chassis"
)

type Controller struct {
	left, right WheelMotor
	sensors     Sensors
	geom        Geometry

	// Last commanded velocities.
	forwardSpeed  float64
	rotationSpeed float64

	turning bool

	// Verbose enables logging of every command sent to the motors.
	Verbose bool
}

// New creates a controller for the given motors and geometry, and configures
// both motors with DefaultAcceleration.
func New(left, right WheelMotor, sensors Sensors, geom Geometry) (*Controller, error) {
	if left == nil || right == nil {
		return nil, ErrNilMotor
	}
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	left.SetAcceleration(DefaultAcceleration)
	right.SetAcceleration(DefaultAcceleration)
	return &Controller{
		left:    left,
		right:   right,
		sensors: sensors,
		geom:    geom,
	}, nil
}

func NewDefault(left, right WheelMotor, sensors Sensors) (*Controller, error) {
	return New(left, right, sensors, DefaultGeometry())
}

func NewWithWidth(left, right WheelMotor, sensors Sensors, width float64) (*Controller, error) {
	g := DefaultGeometry()
	g.AxleWidth = width
	return New(left, right, sensors, g)
}

func (c *Controller) Geometry() Geometry {
	return c.geom
}

// Displacement is the distance travelled by the robot's centre since the
// encoders were last zeroed.  The two tacho counts are not sampled together;
// use DisplacementAndHeading when both values are needed.
func (c *Controller) Displacement() float64 {
	d, _ := c.poseFromTicks(c.left.TachoCount(), c.right.TachoCount())
	return d
}

// Heading is the cumulative rotation derived from the difference between the
// wheels, not a compass bearing.
func (c *Controller) Heading() float64 {
	_, h := c.poseFromTicks(c.left.TachoCount(), c.right.TachoCount())
	return h
}

// DisplacementAndHeading computes both values from one pair of tacho reads
// taken back to back.
func (c *Controller) DisplacementAndHeading() (displacement, heading float64) {
	l := c.left.TachoCount()
	r := c.right.TachoCount()
	return c.poseFromTicks(l, r)
}

func (c *Controller) poseFromTicks(l, r int) (displacement, heading float64) {
	left := float64(l) * c.geom.LeftWheelRadius
	right := float64(r) * c.geom.RightWheelRadius
	displacement = (left + right) * math.Pi / 360
	heading = (left - right) / c.geom.AxleWidth
	return
}

// Speeds returns the last commanded forward and rotation speeds.
func (c *Controller) Speeds() (forward, rotation float64) {
	return c.forwardSpeed, c.rotationSpeed
}

// SetTravelSpeed sets the wheel speed, in ticks/s, used by the discrete
// moves (Rotate, GoForwardDistance) without changing either motor's direction.
func (c *Controller) SetTravelSpeed(speed int) {
	if speed < 0 {
		speed = -speed
	}
	if speed > MaxWheelSpeed {
		speed = MaxWheelSpeed
	}
	c.left.SetSpeed(speed)
	c.right.SetSpeed(speed)
}

func (c *Controller) SetForwardSpeed(speed float64) error {
	return c.SetSpeeds(speed, c.rotationSpeed)
}

func (c *Controller) SetRotationSpeed(speed float64) error {
	return c.SetSpeeds(c.forwardSpeed, speed)
}

// SetSpeeds commands both wheels from a forward speed (length/s) and a
// rotation speed (degrees/s).  Both wheels are always updated together.
func (c *Controller) SetSpeeds(forward, rotation float64) error {
	if !finite(forward) || !finite(rotation) {
		return errors.Wrapf(ErrInvalidCommand, "speeds (%v, %v)", forward, rotation)
	}
	c.forwardSpeed = forward
	c.rotationSpeed = rotation
	c.turning = false

	l, r := WheelSpeeds(c.geom, forward, rotation)
	c.logf("speeds fwd=%.2f rot=%.2f -> l=%+v r=%+v", forward, rotation, l, r)

	setDirection(c.left, l.Forward)
	setDirection(c.right, r.Forward)
	c.left.SetSpeed(l.Speed)
	c.right.SetSpeed(r.Speed)
	return nil
}

func setDirection(m WheelMotor, forward bool) {
	if forward {
		m.Forward()
	} else {
		m.Backward()
	}
}

// Rotate spins the robot in place by angle degrees.  The left wheel's move is
// not waited for; Rotate returns once the right wheel's move completes.
func (c *Controller) Rotate(ctx context.Context, angle float64) error {
	done, err := c.startRotation(angle)
	if err != nil {
		return err
	}
	return wait(ctx, done)
}

// RotateIndependently starts the same spin as Rotate but waits for neither
// wheel.  IsTurning reports when it has finished.
func (c *Controller) RotateIndependently(angle float64) error {
	_, err := c.startRotation(angle)
	return err
}

func (c *Controller) startRotation(angle float64) (<-chan struct{}, error) {
	if !finite(angle) {
		return nil, errors.Wrapf(ErrInvalidCommand, "angle %v", angle)
	}
	lt := TicksForAngle(c.geom.LeftWheelRadius, c.geom.AxleWidth, angle)
	rt := TicksForAngle(c.geom.RightWheelRadius, c.geom.AxleWidth, angle)
	c.logf("rotate %.1f deg -> l=%d r=%d ticks", angle, lt, -rt)

	c.turning = true
	c.left.Rotate(lt)
	return c.right.Rotate(-rt), nil
}

// GoForwardDistance drives straight ahead by distance, returning when the
// right wheel's move completes.
func (c *Controller) GoForwardDistance(ctx context.Context, distance float64) error {
	if !finite(distance) {
		return errors.Wrapf(ErrInvalidCommand, "distance %v", distance)
	}
	sign := chassis.ForwardTravelSign()
	lt := sign * TicksForDistance(c.geom.LeftWheelRadius, distance)
	rt := sign * TicksForDistance(c.geom.RightWheelRadius, distance)
	c.logf("go forward %.2f -> l=%d r=%d ticks", distance, lt, rt)

	c.turning = false
	c.left.Rotate(lt)
	return wait(ctx, c.right.Rotate(rt))
}

// GoForward drives forwards until Stop is called.
func (c *Controller) GoForward() {
	c.turning = false
	fwd := !chassis.ForwardIsMotorBackward
	setDirection(c.left, fwd)
	setDirection(c.right, fwd)
}

// Start turns both motors in their forward direction until Stop is called.
func (c *Controller) Start() {
	c.turning = false
	c.left.Forward()
	c.right.Forward()
}

// Stop halts both motors.  The left motor is not waited for; the right one
// is, so both have stopped (or are within one deceleration of stopping
// together) when Stop returns.
func (c *Controller) Stop(ctx context.Context) error {
	c.logf("stop")
	c.turning = false
	c.left.Stop()
	return wait(ctx, c.right.Stop())
}

// IsTurning reports whether a rotation started by Rotate or
// RotateIndependently is still in progress.
func (c *Controller) IsTurning() bool {
	if c.turning && !c.left.IsMoving() && !c.right.IsMoving() {
		c.turning = false
	}
	return c.turning
}

func (c *Controller) FrontUltrasonicSensor() RangeSensor {
	return c.sensors.FrontUltrasonic
}

func (c *Controller) SideUltrasonicSensor() RangeSensor {
	return c.sensors.SideUltrasonic
}

func (c *Controller) MasterLightSensor() LightSensor {
	return c.sensors.MasterLight
}

func (c *Controller) logf(format string, args ...interface{}) {
	if !c.Verbose {
		return
	}
	fmt.Printf("DD: "+format+"\n", args...)
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	default:
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
