package pipeline

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/sheet-calibration-mcp/internal/config"
)

// testOptions are the default settings without resizing, so synthetic
// coordinates survive unchanged.
func testOptions(mode Mode) Options {
	opts := OptionsFromConfig(config.Default(), mode)
	opts.MaxDimension = 0
	return opts
}

// createSheetImage creates a black canvas with a white sheet covering
// sheet (Max exclusive) and black disks of the given radius at centres.
func createSheetImage(width, height int, sheet image.Rectangle, radius int, centres ...image.Point) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if image.Pt(x, y).In(sheet) {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	for _, p := range centres {
		fillDisk(img, p, radius)
	}
	return img
}

// createRotatedSheetImage creates a black canvas with a white sheet of
// rw × rh centred on the canvas, turned by angleDeg, with one black disk
// at the centre.
func createRotatedSheetImage(width, height int, rw, rh, angleDeg float64, radius int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	cx, cy := float64(width)/2, float64(height)/2
	rad := angleDeg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			u := dx*cos + dy*sin
			v := -dx*sin + dy*cos
			c := color.RGBA{0, 0, 0, 255}
			if math.Abs(u) <= rw/2 && math.Abs(v) <= rh/2 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	fillDisk(img, image.Pt(width/2, height/2), radius)
	return img
}

func fillDisk(img *image.RGBA, c image.Point, radius int) {
	for y := c.Y - radius; y <= c.Y+radius; y++ {
		for x := c.X - radius; x <= c.X+radius; x++ {
			dx, dy := x-c.X, y-c.Y
			if dx*dx+dy*dy <= radius*radius && image.Pt(x, y).In(img.Bounds()) {
				img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
}

// writePNG saves img as dir/name and returns the path.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	return path
}

// ratioSheet creates a 100 px high sheet of the given aspect ratio with one
// centred marker, on a canvas with a 40 px black margin.
func ratioSheet(ratio float64) *image.RGBA {
	w := int(math.Round(100 * ratio))
	sheet := image.Rect(40, 40, 40+w, 140)
	centre := image.Pt(40+w/2, 90)
	return createSheetImage(w+80, 180, sheet, 10, centre)
}
