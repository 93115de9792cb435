package trifinger

import (
	"context"
	"errors"
	"image"
	"time"

	cubepose "github.com/Royzon/trifinger-object-tracking/cube_pose"
)

// ErrStopWatching can be returned by a Watch handler to end the loop without error.
var ErrStopWatching = errors.New("stop watching")

// FrameSource yields one synchronized set of images, one per camera.
type FrameSource interface {
	NextFrames(ctx context.Context) ([]image.Image, error)
}

// Watch polls source every interval, detects the cube pose and hands each estimate to
// handle. Frame and detection errors are logged and the loop continues. Watch returns
// when the context is cancelled or handle returns an error.
func (d *CubeDetector) Watch(
	ctx context.Context,
	source FrameSource,
	interval time.Duration,
	handle func(*cubepose.Estimate) error,
) error {
	d.logger.Infof("Watching %d cameras every %v", len(d.detectors), interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		images, err := source.NextFrames(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Warnf("Frame error: %v", err)
			continue
		}

		est, err := d.DetectPose(ctx, images)
		if err != nil {
			for _, camErr := range CameraErrors(err) {
				d.logger.Warnf("Detection failed: %v", camErr)
			}
			continue
		}
		if err := handle(est); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return nil
			}
			return err
		}
	}
}
