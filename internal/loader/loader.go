// Package loader reads camera calibrations and recorded observations from disk.
package loader

import (
	"encoding/json"
	"fmt"
	"image"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	cubepose "github.com/Royzon/trifinger-object-tracking/cube_pose"
)

// Matrix is a row-major matrix as written by OpenCV-style calibration tools.
type Matrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Data []float64 `yaml:"data"`
}

// Dense converts m to a gonum matrix.
func (m Matrix) Dense() (*mat.Dense, error) {
	if m.Rows <= 0 || m.Cols <= 0 || len(m.Data) != m.Rows*m.Cols {
		return nil, fmt.Errorf("matrix is %dx%d with %d values", m.Rows, m.Cols, len(m.Data))
	}
	return mat.NewDense(m.Rows, m.Cols, m.Data), nil
}

// Calibration is the on-disk calibration of one camera.
type Calibration struct {
	CameraName             string `yaml:"camera_name"`
	ImageWidth             int    `yaml:"image_width"`
	ImageHeight            int    `yaml:"image_height"`
	CameraMatrix           Matrix `yaml:"camera_matrix"`
	DistortionCoefficients Matrix `yaml:"distortion_coefficients"`
	TfWorldToCamera        Matrix `yaml:"tf_world_to_camera"`
}

// Camera builds the camera model described by c.
func (c Calibration) Camera() (*cubepose.CameraParameters, error) {
	k, err := c.CameraMatrix.Dense()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: camera_matrix: %w", cubepose.ErrInvalidCamera, c.CameraName, err)
	}
	tf, err := c.TfWorldToCamera.Dense()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: tf_world_to_camera: %w", cubepose.ErrInvalidCamera, c.CameraName, err)
	}
	return cubepose.NewCameraParameters(c.CameraName, c.ImageWidth, c.ImageHeight, k, c.DistortionCoefficients.Data, tf)
}

// LoadCalibration reads and parses a camera calibration YAML file.
func LoadCalibration(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}
	var c Calibration
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing calibration file %s: %w", path, err)
	}
	if c.CameraName == "" {
		c.CameraName = path
	}
	return &c, nil
}

// SaveCalibration writes c to path as YAML.
func SaveCalibration(path string, c *Calibration) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding calibration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing calibration file: %w", err)
	}
	return nil
}

// LoadCameras loads one camera per calibration file, in order.
func LoadCameras(paths []string) ([]*cubepose.CameraParameters, error) {
	cams := make([]*cubepose.CameraParameters, 0, len(paths))
	for _, p := range paths {
		c, err := LoadCalibration(p)
		if err != nil {
			return nil, err
		}
		cam, err := c.Camera()
		if err != nil {
			return nil, err
		}
		cams = append(cams, cam)
	}
	return cams, nil
}

type lineRecord struct {
	Colors    [2]cubepose.FaceColor `json:"colors"`
	Slope     float64               `json:"slope"`
	Intercept float64               `json:"intercept"`
}

type cameraRecord struct {
	DominantColors []cubepose.FaceColor `json:"dominant_colors"`
	Masks          [][][2]int           `json:"masks"`
	Lines          []lineRecord         `json:"lines"`
}

type frameRecord struct {
	Cameras []cameraRecord `json:"cameras"`
}

// LoadObservations reads one frame of recorded detector output, one entry per camera.
func LoadObservations(path string) ([]cubepose.CameraObservation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading observations file: %w", err)
	}
	var frame frameRecord
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("parsing observations file %s: %w", path, err)
	}

	out := make([]cubepose.CameraObservation, len(frame.Cameras))
	for i, rec := range frame.Cameras {
		if len(rec.Masks) != len(rec.DominantColors) {
			return nil, fmt.Errorf("%w: camera %d has %d masks for %d colors",
				cubepose.ErrObservationMismatch, i, len(rec.Masks), len(rec.DominantColors))
		}
		obs := cubepose.CameraObservation{
			DominantColors: rec.DominantColors,
			Masks:          make([][]image.Point, len(rec.Masks)),
			Lines:          make(map[cubepose.ColorPair]cubepose.Line, len(rec.Lines)),
		}
		for j, m := range rec.Masks {
			pts := make([]image.Point, len(m))
			for k, xy := range m {
				pts[k] = image.Point{X: xy[0], Y: xy[1]}
			}
			obs.Masks[j] = pts
		}
		for _, l := range rec.Lines {
			pair := cubepose.NewColorPair(l.Colors[0], l.Colors[1])
			obs.Lines[pair] = cubepose.Line{Slope: l.Slope, Intercept: l.Intercept}
		}
		out[i] = obs
	}
	return out, nil
}

// SaveObservations writes observations in the format read by LoadObservations.
func SaveObservations(path string, observations []cubepose.CameraObservation) error {
	frame := frameRecord{Cameras: make([]cameraRecord, len(observations))}
	for i, obs := range observations {
		rec := cameraRecord{DominantColors: obs.DominantColors, Masks: make([][][2]int, len(obs.Masks))}
		for j, m := range obs.Masks {
			rec.Masks[j] = make([][2]int, len(m))
			for k, p := range m {
				rec.Masks[j][k] = [2]int{p.X, p.Y}
			}
		}
		for _, pair := range obs.LinePairs() {
			l := obs.Lines[pair]
			rec.Lines = append(rec.Lines, lineRecord{Colors: [2]cubepose.FaceColor{pair.A, pair.B}, Slope: l.Slope, Intercept: l.Intercept})
		}
		frame.Cameras[i] = rec
	}
	data, err := json.MarshalIndent(frame, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding observations: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing observations file: %w", err)
	}
	return nil
}
