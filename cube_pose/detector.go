package cubepose

import (
	"fmt"

	"github.com/golang/geo/r2"
	"go.viam.com/rdk/logging"
)

// PoseDetector estimates the cube pose from the observations of a fixed camera set,
// dispatching to the CEM tracker or to differential evolution.
type PoseDetector struct {
	logger  logging.Logger
	model   *CubeModel
	cameras []*CameraParameters
	cfg     Config

	tracker *Tracker
	evolver *Evolver
}

// NewPoseDetector creates a PoseDetector. cameras must be in the same order as the
// observations passed to FindPose. A nil logger is replaced with a default one.
func NewPoseDetector(model *CubeModel, cameras []*CameraParameters, cfg Config, logger logging.Logger) (*PoseDetector, error) {
	logger = orDefaultLogger(logger)
	for i, cam := range cameras {
		if cam == nil {
			return nil, fmt.Errorf("%w: camera %d is nil", ErrInvalidCamera, i)
		}
	}
	tracker, err := NewTracker(model, cameras, cfg, logger)
	if err != nil {
		return nil, err
	}
	evolver, err := NewEvolver(model, cameras, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &PoseDetector{
		logger:  logger,
		model:   model,
		cameras: cameras,
		cfg:     cfg,
		tracker: tracker,
		evolver: evolver,
	}, nil
}

// FindPose estimates the pose for one frame of observations, one per camera.
func (d *PoseDetector) FindPose(observations []CameraObservation) (*Estimate, error) {
	var (
		est *Estimate
		err error
	)
	switch d.cfg.Method {
	case MethodDE:
		est, err = d.evolver.FindPose(observations)
	default:
		est, err = d.tracker.Update(observations)
	}
	if err != nil {
		return nil, err
	}
	if est.PoorFit {
		d.logger.Warnf("pose estimate is a poor fit (cost %.3f)", est.Cost)
	}
	return est, nil
}

// Reset discards any tracking state.
func (d *PoseDetector) Reset() { d.tracker.Reset() }

// Tracker returns the CEM tracker.
func (d *PoseDetector) Tracker() *Tracker { return d.tracker }

// VisibleFaces lists the faces of p visible from camera cameraIdx.
func (d *PoseDetector) VisibleFaces(cameraIdx int, p Particle) ([]VisibleFace, error) {
	if cameraIdx < 0 || cameraIdx >= len(d.cameras) {
		return nil, fmt.Errorf("%w: camera index %d of %d", ErrInvalidCamera, cameraIdx, len(d.cameras))
	}
	return NewVisibilityEvaluator(d.model).VisibleFaces(p, d.cameras[cameraIdx]), nil
}

// ProjectedCorners returns the 8 corners of p projected into every camera.
func (d *PoseDetector) ProjectedCorners(p Particle) [][]r2.Point {
	return projectCorners(d.model, d.cameras, p)
}

// Model returns the cube model.
func (d *PoseDetector) Model() *CubeModel { return d.model }

// Cameras returns the cameras in observation order.
func (d *PoseDetector) Cameras() []*CameraParameters { return d.cameras }

// Config returns the configuration the detector was built with.
func (d *PoseDetector) Config() Config { return d.cfg }
