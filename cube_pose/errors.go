package cubepose

import "errors"

var (
	// ErrInvalidCube is returned when the cube geometry cannot be built.
	ErrInvalidCube = errors.New("invalid cube model")

	// ErrInvalidCamera is returned when camera calibration data is malformed.
	ErrInvalidCamera = errors.New("invalid camera parameters")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCameraCountMismatch is returned when per-camera inputs do not match the camera count.
	ErrCameraCountMismatch = errors.New("camera count mismatch")

	// ErrObservationMismatch is returned when an observation's masks and dominant colors disagree.
	ErrObservationMismatch = errors.New("observation masks do not match dominant colors")

	// ErrNoCameras is returned when a detector is built without any camera.
	ErrNoCameras = errors.New("at least one camera is required")
)
