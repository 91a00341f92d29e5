package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// GridOptions controls the physical-unit grid drawn over a calibrated sheet.
type GridOptions struct {
	// PixelsPerUnit is the inverse of the calibration scale factor.
	PixelsPerUnit float64

	// Step is the grid spacing in physical units (e.g. 1 for every cm).
	Step float64

	// Origin is where the 0,0 grid lines cross, in raster coordinates.
	Origin image.Point

	// Color is the hex line colour. Empty uses semi-transparent red.
	Color string

	// Labels draws the unit count next to every line.
	Labels bool
}

// DrawScaleGrid overlays a grid whose lines are Step physical units apart.
// Lines extend in both directions from Origin. Spacing below 2 px is
// rejected since the grid would cover the image.
func DrawScaleGrid(img *image.RGBA, opts GridOptions) error {
	if opts.PixelsPerUnit <= 0 || opts.Step <= 0 {
		return fmt.Errorf("grid needs positive scale and step, got %g/%g", opts.PixelsPerUnit, opts.Step)
	}
	spacing := opts.PixelsPerUnit * opts.Step
	if spacing < 2 {
		return fmt.Errorf("grid spacing %.2fpx too dense", spacing)
	}

	gridColor := color.RGBA{255, 0, 0, 128}
	if opts.Color != "" {
		c, err := parseHexColor(opts.Color)
		if err != nil {
			return fmt.Errorf("invalid grid colour: %w", err)
		}
		gridColor = c
	}

	b := img.Bounds()
	first := func(origin, min int) int {
		return int(math.Floor(float64(min-origin) / spacing))
	}

	// Vertical lines
	for i := first(opts.Origin.X, b.Min.X); ; i++ {
		x := opts.Origin.X + int(math.Round(float64(i)*spacing))
		if x >= b.Max.X {
			break
		}
		if x < b.Min.X {
			continue
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			img.Set(x, y, gridColor)
		}
		if opts.Labels {
			drawLabel(img, x+2, b.Min.Y+2, gridLabel(float64(i)*opts.Step), color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 180})
		}
	}

	// Horizontal lines
	for i := first(opts.Origin.Y, b.Min.Y); ; i++ {
		y := opts.Origin.Y + int(math.Round(float64(i)*spacing))
		if y >= b.Max.Y {
			break
		}
		if y < b.Min.Y {
			continue
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
		if opts.Labels {
			drawLabel(img, b.Min.X+2, y+2, gridLabel(float64(i)*opts.Step), color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 180})
		}
	}
	return nil
}

func gridLabel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// drawLabel draws text on a filled box with its top-left corner at (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}

	box := image.Rect(x-1, y-1, x+d.MeasureString(text).Ceil()+1, y+face.Height)
	draw.Draw(img, box.Intersect(img.Bounds()), image.NewUniform(bg), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y+face.Ascent)
	d.DrawString(text)
}
