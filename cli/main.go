package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.viam.com/rdk/logging"

	trifinger "github.com/Royzon/trifinger-object-tracking"
	cubepose "github.com/Royzon/trifinger-object-tracking/cube_pose"
	"github.com/Royzon/trifinger-object-tracking/internal/loader"
)

// replayDetector reports a recorded observation regardless of the image it is given.
type replayDetector struct {
	obs cubepose.CameraObservation
}

func (r *replayDetector) DetectLines(context.Context, image.Image) (*cubepose.CameraObservation, error) {
	return &r.obs, nil
}

func main() {
	calibPaths := flag.String("calib", "", "comma-separated camera calibration YAML files, one per camera")
	obsPath := flag.String("observations", "", "path to recorded observations JSON file")
	configPath := flag.String("config", "", "path to a JSON file with pose search attributes (optional)")
	method := flag.String("method", "", "search method override: cem or de")
	seed := flag.Int64("seed", 0, "RNG seed override; 0 keeps the configured seed")
	imagePaths := flag.String("images", "", "comma-separated camera images, one per camera (optional)")
	debugOut := flag.String("debug-out", "", "write a PNG debug grid to this path (optional)")
	flag.Parse()

	logger := logging.NewLogger("trifinger-cli")

	if *calibPaths == "" {
		logger.Fatal("-calib flag is required")
	}
	if *obsPath == "" {
		logger.Fatal("-observations flag is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	if *method != "" {
		cfg.Method = cubepose.Method(*method)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	cams, err := loader.LoadCameras(splitList(*calibPaths))
	if err != nil {
		logger.Fatal(err)
	}
	observations, err := loader.LoadObservations(*obsPath)
	if err != nil {
		logger.Fatal(err)
	}
	if len(observations) != len(cams) {
		logger.Fatalf("%d observations for %d cameras", len(observations), len(cams))
	}

	detectors := make([]trifinger.LineDetector, len(observations))
	for i := range observations {
		detectors[i] = &replayDetector{obs: observations[i]}
	}
	d, err := trifinger.NewCubeDetector(cams, detectors, cfg, logger)
	if err != nil {
		logger.Fatal(err)
	}

	images, err := loadImages(*imagePaths, cams)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Infof("=== Searching cube pose with %s over %d cameras ===", cfg.Method, len(cams))
	est, err := d.DetectPose(ctx, images)
	if err != nil {
		logger.Fatal(err)
	}
	printEstimate(logger, cams, est)

	if *debugOut != "" {
		if err := writeDebugImage(d, images, est, *debugOut); err != nil {
			logger.Fatal(err)
		}
		logger.Infof("Debug image written to %s", *debugOut)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadConfig(path string) (cubepose.Config, error) {
	if path == "" {
		return trifinger.ConfigFromAttributes(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cubepose.Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		return cubepose.Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return trifinger.ConfigFromAttributes(attrs)
}

// loadImages decodes one image per camera, or returns blank frames of each camera's
// size when no paths are given.
func loadImages(paths string, cams []*cubepose.CameraParameters) ([]image.Image, error) {
	images := make([]image.Image, len(cams))
	if paths == "" {
		for i, c := range cams {
			in := c.Intrinsics()
			images[i] = image.NewRGBA(image.Rect(0, 0, in.Width, in.Height))
		}
		return images, nil
	}
	list := splitList(paths)
	if len(list) != len(cams) {
		return nil, fmt.Errorf("%w: %d images for %d cameras", cubepose.ErrCameraCountMismatch, len(list), len(cams))
	}
	for i, p := range list {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("opening image: %w", err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding image %s: %w", p, err)
		}
		images[i] = img
	}
	return images, nil
}

func printEstimate(logger logging.Logger, cams []*cubepose.CameraParameters, est *cubepose.Estimate) {
	pos := est.Particle.Position
	aa := est.Pose.Orientation().AxisAngles()
	logger.Infof("Pose (%s, %d rounds): position=(%.4f, %.4f, %.4f) m axis=(%.3f, %.3f, %.3f) angle=%.3f rad",
		est.Method, est.Rounds, pos.X, pos.Y, pos.Z, aa.RX, aa.RY, aa.RZ, aa.Theta)
	logger.Infof("Cost: %.3f poor fit: %v", est.Cost, est.PoorFit)

	for i, faces := range est.VisibleFaces {
		names := make([]string, len(faces))
		for j, f := range faces {
			names[j] = f.Color.String()
		}
		logger.Infof("  %s sees: %s", cams[i].Name(), strings.Join(names, ", "))
	}
}

func writeDebugImage(d *trifinger.CubeDetector, images []image.Image, est *cubepose.Estimate, path string) error {
	grid, err := d.DebugImage(images, est)
	if err != nil {
		return fmt.Errorf("debug image: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating debug image: %w", err)
	}
	defer f.Close()
	return png.Encode(f, grid)
}
