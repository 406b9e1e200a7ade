package diffdrive

import "github.com/pkg/errors"

var (
	// ErrInvalidGeometry is returned when a wheel radius or the axle width is
	// not a positive, finite length.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidCommand is returned when a speed, distance or angle is NaN or
	// infinite.  Nothing is sent to the motors in that case.
	ErrInvalidCommand = errors.New("invalid command")

	ErrNilMotor = errors.New("nil wheel motor")
)
