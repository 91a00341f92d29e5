package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Circle is a circle to draw, in raster coordinates.
type Circle struct {
	X, Y, Radius int
}

// Style controls how annotations are drawn.
type Style struct {
	// Primary is the hex colour of the selected (primary) marker.
	Primary string

	// Secondary is the hex colour of every other marker. Empty spreads the
	// other markers over distinct hues instead.
	Secondary string

	// Outline is the hex colour of the sheet outline, drawn when Frame is set.
	Outline string

	// Thickness is the stroke width in pixels.
	Thickness int

	// Frame draws the sheet outline along the raster border.
	Frame bool
}

// DefaultStyle matches the calibration tools: blue for the selected marker,
// green for the others, red for the sheet outline, 2 px strokes.
func DefaultStyle() Style {
	return Style{
		Primary:   "#0000FF",
		Secondary: "#00FF00",
		Outline:   "#FF0000",
		Thickness: 2,
	}
}

// AnnotatedResult contains an annotated image encoded as base64 PNG.
type AnnotatedResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Annotate draws circles on a copy of r. circles[selected] uses the primary
// colour; selected < 0 draws every circle in the secondary palette.
func Annotate(r *Raster, circles []Circle, selected int, style Style) (*image.RGBA, error) {
	primary, err := parseHexColor(style.Primary)
	if err != nil {
		return nil, fmt.Errorf("invalid primary colour: %w", err)
	}
	palette, err := secondaryPalette(style.Secondary, len(circles))
	if err != nil {
		return nil, fmt.Errorf("invalid secondary colour: %w", err)
	}
	thickness := style.Thickness
	if thickness < 1 {
		thickness = 1
	}

	out := r.RGBA()

	if style.Frame {
		outline, err := parseHexColor(style.Outline)
		if err != nil {
			return nil, fmt.Errorf("invalid outline colour: %w", err)
		}
		drawFrame(out, outline, thickness)
	}

	for i, c := range circles {
		col := palette[i]
		if i == selected {
			col = primary
		}
		drawCircle(out, c, col, thickness)
	}
	return out, nil
}

// EncodePNG encodes img as a base64 PNG result.
func EncodePNG(img image.Image) (*AnnotatedResult, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &AnnotatedResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// parseHexColor parses "#RRGGBB" into an opaque colour.
func parseHexColor(hex string) (color.RGBA, error) {
	if hex == "" {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// secondaryPalette returns n colours for non-selected circles: the fixed
// secondary colour, or evenly spaced hues when none is set.
func secondaryPalette(secondary string, n int) ([]color.RGBA, error) {
	out := make([]color.RGBA, n)
	if secondary != "" {
		c, err := parseHexColor(secondary)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = c
		}
		return out, nil
	}
	for i := range out {
		hue := 120 + 360*float64(i)/float64(n)
		r, g, b := colorful.Hsv(math.Mod(hue, 360), 0.9, 0.9).Clamped().RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out, nil
}

// drawCircle strokes a circle outline of the given thickness, centred on the
// radius. Pixels outside the image are skipped.
func drawCircle(img *image.RGBA, c Circle, col color.RGBA, thickness int) {
	bounds := img.Bounds()
	inner := float64(c.Radius) - float64(thickness)/2
	outer := float64(c.Radius) + float64(thickness)/2
	reach := int(math.Ceil(outer))

	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			d := math.Hypot(float64(dx), float64(dy))
			if d < inner || d > outer {
				continue
			}
			p := image.Point{X: c.X + dx, Y: c.Y + dy}
			if p.In(bounds) {
				img.SetRGBA(p.X, p.Y, col)
			}
		}
	}
}

// drawFrame strokes the image border.
func drawFrame(img *image.RGBA, col color.RGBA, thickness int) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if x-b.Min.X < thickness || b.Max.X-1-x < thickness ||
				y-b.Min.Y < thickness || b.Max.Y-1-y < thickness {
				img.SetRGBA(x, y, col)
			}
		}
	}
}
