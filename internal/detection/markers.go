package detection

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
)

// Marker is a detected circular reference dot in sheet coordinates.
type Marker struct {
	Center image.Point
	Radius int
}

// Diameter returns 2 × Radius.
func (m Marker) Diameter() int { return 2 * m.Radius }

// Contains reports whether p lies strictly inside the marker.
func (m Marker) Contains(p image.Point) bool {
	dx := float64(p.X - m.Center.X)
	dy := float64(p.Y - m.Center.Y)
	return math.Hypot(dx, dy) < float64(m.Radius)
}

// HoughParams are the circle transform tolerances.
type HoughParams struct {
	// DP is the inverse accumulator resolution; 1 votes at full resolution.
	DP float64

	// MinDist is the minimum distance between accepted centres in pixels.
	MinDist float64

	// Param1 is the Canny high threshold; the low threshold is half of it.
	Param1 float64

	// Param2 is the accumulator vote threshold for centre candidates.
	Param2 float64

	// MinRadius and MaxRadius bound the radii searched, in pixels.
	MinRadius int
	MaxRadius int
}

// DefaultHoughParams returns the tolerances the batch tools were tuned
// with for sheets resized to 800 px.
func DefaultHoughParams() HoughParams {
	return HoughParams{DP: 1, MinDist: 50, Param1: 255, Param2: 13, MinRadius: 1, MaxRadius: 50}
}

// BlurParams configure the Gaussian smoothing applied before the circle
// transform.
type BlurParams struct {
	KernelSize int
	Sigma      float64
}

// DefaultBlurParams returns a 9x9 kernel with sigma 2.
func DefaultBlurParams() BlurParams {
	return BlurParams{KernelSize: 9, Sigma: 2}
}

// MarkerDetector finds circular markers on a cropped, deskewed sheet.
// It holds no state between calls and is safe for concurrent use.
type MarkerDetector struct {
	blur  BlurParams
	hough HoughParams
}

// NewMarkerDetector creates a detector with the given tolerances.
func NewMarkerDetector(blur BlurParams, hough HoughParams) *MarkerDetector {
	return &MarkerDetector{blur: blur, hough: hough}
}

// Backend names the circle finder compiled into this binary.
func (d *MarkerDetector) Backend() string { return circleBackend }

// FindMarkers detects the markers on sheet.
//
// The sheet is converted to luma, smoothed with a Gaussian blur and passed
// to the circle finder. Centres and radii are rounded to whole pixels and
// the result is sorted with SortMarkers, so the first marker is the primary
// one. An empty slice with a nil error means no marker was found.
func (d *MarkerDetector) FindMarkers(sheet *imaging.Raster) ([]Marker, error) {
	blurred, err := sheet.Blur(d.blur.KernelSize, d.blur.Sigma)
	if err != nil {
		return nil, fmt.Errorf("failed to blur sheet: %w", err)
	}

	circles, err := findCircles(blurred, d.hough)
	if err != nil {
		return nil, err
	}

	markers := make([]Marker, 0, len(circles))
	for _, c := range circles {
		markers = append(markers, Marker{
			Center: image.Point{X: int(math.Round(c.X)), Y: int(math.Round(c.Y))},
			Radius: int(math.Round(c.R)),
		})
	}
	SortMarkers(markers)
	return markers, nil
}

// SortMarkers orders markers by centre Y, then X, then radius, all
// ascending. The order is the calibration contract: index 0 is the primary
// marker whatever order the circle finder produced.
func SortMarkers(markers []Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		a, b := markers[i], markers[j]
		if a.Center.Y != b.Center.Y {
			return a.Center.Y < b.Center.Y
		}
		if a.Center.X != b.Center.X {
			return a.Center.X < b.Center.X
		}
		return a.Radius < b.Radius
	})
}

// PrimaryMarker returns the first marker of a sorted set, or ErrNoMarkers.
func PrimaryMarker(markers []Marker) (Marker, error) {
	if len(markers) == 0 {
		return Marker{}, ErrNoMarkers
	}
	return markers[0], nil
}

// MarkerAt returns the index of the first marker containing p, or -1.
func MarkerAt(markers []Marker, p image.Point) int {
	for i, m := range markers {
		if m.Contains(p) {
			return i
		}
	}
	return -1
}
