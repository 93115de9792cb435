package trifinger

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gg"
	"github.com/golang/geo/r2"
	"golang.org/x/image/draw"

	cubepose "github.com/Royzon/trifinger-object-tracking/cube_pose"
)

// Debug grid columns.
const (
	colRaw = iota
	colSegmented
	colLines
	colOverlay
	numDebugColumns
)

// DebugTileWidth is the width of one tile in the debug grid; tile height follows the
// aspect ratio of the first camera.
const DebugTileWidth = 360

// DebugImage composes a grid with one row per camera and the columns raw image,
// segmentation, detected lines and projected cube edges. Tiles that are not
// available stay black. est may be nil, in which case no overlay is drawn.
func (d *CubeDetector) DebugImage(images []image.Image, est *cubepose.Estimate) (image.Image, error) {
	cams := d.pose.Cameras()
	if len(images) != len(cams) {
		return nil, fmt.Errorf("%w: %d images for %d cameras", cubepose.ErrCameraCountMismatch, len(images), len(cams))
	}

	in := cams[0].Intrinsics()
	tileW := DebugTileWidth
	tileH := tileW * in.Height / in.Width
	grid := image.NewRGBA(image.Rect(0, 0, tileW*numDebugColumns, tileH*len(cams)))
	draw.Draw(grid, grid.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	var corners [][]r2.Point
	if est != nil {
		corners = d.pose.ProjectedCorners(est.Particle)
	}
	edges := d.pose.Model().Edges()

	for row := range cams {
		tiles := [numDebugColumns]image.Image{colRaw: images[row]}
		if di, ok := d.detectors[row].(DebugImager); ok {
			tiles[colSegmented] = di.SegmentedImage()
			tiles[colLines] = di.LinesImage()
		}
		if images[row] != nil && corners != nil {
			overlay, err := drawCubeEdges(images[row], corners[row], edges)
			if err != nil {
				d.logger.Warnf("Overlay for %s failed: %v", cams[row].Name(), err)
			} else {
				tiles[colOverlay] = overlay
			}
		}
		for col, tile := range tiles {
			if tile == nil {
				continue
			}
			dst := image.Rect(col*tileW, row*tileH, (col+1)*tileW, (row+1)*tileH)
			draw.ApproxBiLinear.Scale(grid, dst, tile, tile.Bounds(), draw.Src, nil)
		}
	}
	return grid, nil
}

// drawCubeEdges draws the cube wireframe over a copy of img.
func drawCubeEdges(img image.Image, corners []r2.Point, edges [][2]int) (image.Image, error) {
	dc := gg.NewContextForImage(img)
	defer dc.Close()

	dc.SetRGB(0, 1, 0)
	dc.SetLineWidth(2)
	for _, e := range edges {
		a, b := corners[e[0]], corners[e[1]]
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
	}
	if err := dc.Stroke(); err != nil {
		return nil, err
	}
	return dc.Image(), nil
}
