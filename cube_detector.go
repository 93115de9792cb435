package trifinger

import (
	"context"
	"fmt"
	"image"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	cubepose "github.com/Royzon/trifinger-object-tracking/cube_pose"
	"go.viam.com/rdk/logging"
)

// LineDetector segments one camera image into cube-face masks and color-boundary lines.
type LineDetector interface {
	DetectLines(ctx context.Context, img image.Image) (*cubepose.CameraObservation, error)
}

// DebugImager is implemented by line detectors that can render their last result.
type DebugImager interface {
	SegmentedImage() image.Image
	LinesImage() image.Image
}

// CubeDetector runs one LineDetector per camera and fuses their observations into a
// single cube pose.
type CubeDetector struct {
	logger    logging.Logger
	detectors []LineDetector
	pose      *cubepose.PoseDetector

	mu   sync.Mutex
	last *cubepose.Estimate
}

// NewCubeDetector creates a CubeDetector for the reference cube. detectors[i] handles
// the images of cameras[i].
func NewCubeDetector(
	cameras []*cubepose.CameraParameters,
	detectors []LineDetector,
	cfg cubepose.Config,
	logger logging.Logger,
) (*CubeDetector, error) {
	return NewCubeDetectorWithModel(cubepose.DefaultCubeModel(), cameras, detectors, cfg, logger)
}

// NewCubeDetectorWithModel is NewCubeDetector for a custom cube geometry.
func NewCubeDetectorWithModel(
	model *cubepose.CubeModel,
	cameras []*cubepose.CameraParameters,
	detectors []LineDetector,
	cfg cubepose.Config,
	logger logging.Logger,
) (*CubeDetector, error) {
	if len(detectors) != len(cameras) {
		return nil, fmt.Errorf("%w: %d line detectors for %d cameras",
			cubepose.ErrCameraCountMismatch, len(detectors), len(cameras))
	}
	for i, d := range detectors {
		if d == nil {
			return nil, fmt.Errorf("line detector %d is nil", i)
		}
	}
	if logger == nil {
		logger = logging.NewLogger("trifinger")
	}
	pose, err := cubepose.NewPoseDetector(model, cameras, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &CubeDetector{
		logger:    logger,
		detectors: detectors,
		pose:      pose,
	}, nil
}

// DetectPose runs every line detector on its image in parallel, then searches for the
// pose. Line detector failures are aggregated into one error.
func (d *CubeDetector) DetectPose(ctx context.Context, images []image.Image) (*cubepose.Estimate, error) {
	obs, err := d.observe(ctx, images)
	if err != nil {
		return nil, err
	}

	est, err := d.pose.FindPose(obs)
	if err != nil {
		return nil, fmt.Errorf("find pose: %w", err)
	}

	d.mu.Lock()
	d.last = est
	d.mu.Unlock()

	pos := est.Pose.Point()
	d.logger.Infof("Cube at (%.1f, %.1f, %.1f) mm, cost %.3f (%s, %d rounds)",
		pos.X, pos.Y, pos.Z, est.Cost, est.Method, est.Rounds)
	return est, nil
}

func (d *CubeDetector) observe(ctx context.Context, images []image.Image) ([]cubepose.CameraObservation, error) {
	if len(images) != len(d.detectors) {
		return nil, fmt.Errorf("%w: %d images for %d cameras",
			cubepose.ErrCameraCountMismatch, len(images), len(d.detectors))
	}

	obs := make([]cubepose.CameraObservation, len(images))
	errs := make([]error, len(images))
	var g errgroup.Group
	g.SetLimit(len(images))
	for i := range images {
		g.Go(func() error {
			name := d.pose.Cameras()[i].Name()
			if images[i] == nil {
				errs[i] = fmt.Errorf("camera %s: no image", name)
				return nil
			}
			o, err := d.detectors[i].DetectLines(ctx, images[i])
			switch {
			case err != nil:
				errs[i] = fmt.Errorf("camera %s: %w", name, err)
			case o == nil:
				errs[i] = fmt.Errorf("camera %s: line detector returned no observation", name)
			default:
				obs[i] = *o
			}
			return nil
		})
	}
	// Workers record failures in errs and return nil so that one broken camera does
	// not cancel the others; Wait only joins them.
	_ = g.Wait()
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	return obs, nil
}

// LastEstimate returns the most recent successful estimate, or nil.
func (d *CubeDetector) LastEstimate() *cubepose.Estimate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Reset forgets the last estimate and restarts tracking from scratch.
func (d *CubeDetector) Reset() {
	d.mu.Lock()
	d.last = nil
	d.mu.Unlock()
	d.pose.Reset()
}

// PoseDetector returns the underlying pose search.
func (d *CubeDetector) PoseDetector() *cubepose.PoseDetector { return d.pose }

// CameraErrors splits an error returned by DetectPose into its per-camera parts.
func CameraErrors(err error) []error {
	return multierr.Errors(err)
}
