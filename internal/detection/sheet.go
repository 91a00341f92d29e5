package detection

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
)

// Sentinel errors of the detection stages. Callers classify failures with
// errors.Is.
var (
	// ErrNoRectangle is returned when binarization leaves no contour.
	ErrNoRectangle = errors.New("no rectangle found")

	// ErrNoMarkers is returned when no circular marker is found on the sheet.
	ErrNoMarkers = errors.New("no markers found")

	// ErrDegenerateGeometry is returned for zero-size regions and zero-radius
	// markers, before any computation divides by their extent.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// Size is a width and height in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Region is the axis-aligned bounding box of the detected sheet.
type Region struct {
	// TopLeft is the top-left pixel of the sheet (inclusive).
	TopLeft image.Point `json:"top_left"`

	// Size is the pixel extent of the sheet. TopLeft+Size never exceeds the
	// image the region was found in.
	Size Size `json:"size"`

	// Area is the area enclosed by the source contour in square pixels.
	Area float64 `json:"area"`

	// Contour is the boundary the region was derived from. It is only
	// needed for deskewing and may be dropped afterwards.
	Contour Contour `json:"-"`
}

// Bounds returns the region as a rectangle, Max exclusive.
func (r Region) Bounds() image.Rectangle {
	return image.Rect(r.TopLeft.X, r.TopLeft.Y, r.TopLeft.X+r.Size.Width, r.TopLeft.Y+r.Size.Height)
}

// Center returns the centre of the bounding box, TopLeft + Size/2.
func (r Region) Center() (x, y float64) {
	return float64(r.TopLeft.X) + float64(r.Size.Width)/2, float64(r.TopLeft.Y) + float64(r.Size.Height)/2
}

// Degenerate reports whether the region has no usable extent.
func (r Region) Degenerate() bool {
	return r.Size.Width <= 0 || r.Size.Height <= 0
}

// DetectSheet locates the reference sheet: the largest bright region of the
// raster.
//
// # Algorithm
//
//  1. Grayscale conversion (ITU-R BT.601 luma)
//  2. Global binarization: luma >= threshold is foreground
//  3. External contour extraction (contours inside holes are ignored)
//  4. Selection of the contour enclosing the largest area; on equal areas
//     the first contour in raster order wins
//  5. Axis-aligned bounding box of the selected contour
//
// Smaller bright regions are ignored. ErrNoRectangle is returned when the
// binary image has no foreground at all.
func DetectSheet(r *imaging.Raster, threshold uint8) (*Region, error) {
	return FindRegion(r.Threshold(threshold))
}

// ContourBackend names the contour extractor compiled into this binary.
func ContourBackend() string { return contourBackend }

// FindRegion runs steps 3-5 of DetectSheet on an already binarized image.
func FindRegion(bin *image.Gray) (*Region, error) {
	contours, err := externalContours(bin)
	if err != nil {
		return nil, err
	}
	if len(contours) == 0 {
		return nil, ErrNoRectangle
	}

	best := 0
	bestArea := contours[0].Area()
	for i := 1; i < len(contours); i++ {
		if a := contours[i].Area(); a > bestArea {
			best, bestArea = i, a
		}
	}

	c := contours[best]
	box := c.BoundingBox()
	region := &Region{
		TopLeft: box.Min,
		Size:    Size{Width: box.Dx(), Height: box.Dy()},
		Area:    bestArea,
		Contour: c,
	}
	if !region.Bounds().In(bin.Bounds().Sub(bin.Bounds().Min)) {
		return nil, fmt.Errorf("%w: region %v exceeds image %v", ErrDegenerateGeometry, region.Bounds(), bin.Bounds())
	}
	return region, nil
}
