package chassis

// Physical dimensions of the two-wheeled robot, in centimetres.
const (
	WheelRadiusCM float64 = 2.05
	AxleWidthCM   float64 = 18.48

	// Encoder ticks are degrees of wheel rotation.
	TicksPerRevolution = 360
)

// ForwardIsMotorBackward records how the motors are mounted: driving the robot
// forwards needs both motors turning in their backward direction.
const ForwardIsMotorBackward = true

// ForwardTravelSign is the sign to apply to a tick target so that a positive
// distance moves the robot forwards.
func ForwardTravelSign() int {
	if ForwardIsMotorBackward {
		return -1
	}
	return 1
}
