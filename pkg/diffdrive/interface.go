package diffdrive

// WheelMotor is a regulated motor driving one wheel.  Speeds are in ticks per
// second, accelerations in ticks per second squared, and ticks are degrees of
// wheel rotation.
type WheelMotor interface {
	SetAcceleration(rate int)

	// Forward and Backward set the direction and keep the motor turning at the
	// current speed until told otherwise.
	Forward()
	Backward()
	SetSpeed(speed int)

	// Rotate starts a relative move of the given number of ticks and returns
	// immediately.  The returned channel is closed once the move has completed
	// or has been superseded by another command.
	Rotate(ticks int) <-chan struct{}

	// Stop starts decelerating the motor.  The returned channel is closed once
	// the motor has stopped.
	Stop() <-chan struct{}

	// TachoCount is the cumulative signed tick count.
	TachoCount() int
	IsMoving() bool
}

type RangeSensor interface {
	DistanceCM() (int, error)
}

type LightSensor interface {
	LightLevel() (int, error)
}

// Sensors groups the sensor handles carried by the robot.  The controller hands
// them out but never reads them.
type Sensors struct {
	FrontUltrasonic RangeSensor
	SideUltrasonic  RangeSensor
	MasterLight     LightSensor
}
