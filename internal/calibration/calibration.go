package calibration

import (
	"fmt"

	"github.com/ironsheep/sheet-calibration-mcp/internal/detection"
)

// ErrDegenerateGeometry is returned when a measurement would divide by
// zero. It is the detection sentinel, so errors.Is matches either name.
var ErrDegenerateGeometry = detection.ErrDegenerateGeometry

// DefaultUnit is the physical unit of the known marker diameter.
const DefaultUnit = "cm"

// Vector is a physical-unit pair.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PhysicalSize is a sheet size in physical units.
type PhysicalSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Offset is a pixel displacement. It may be negative.
type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Result is the calibration of one sheet.
type Result struct {
	ScaleFactor          float64        `json:"scale_factor"`
	MarkerDiameterPixels int            `json:"marker_diameter_pixels"`
	SheetSizePixels      detection.Size `json:"sheet_size_pixels"`
	SheetSizePhysical    PhysicalSize   `json:"sheet_size_physical"`
	MarkerOffsetPixels   Offset         `json:"marker_offset_pixels"`
	MarkerOffsetPhysical Vector         `json:"marker_offset_physical"`
	AspectRatio          float64        `json:"aspect_ratio"`
	Unit                 string         `json:"unit"`
}

// Calibrate derives the scale factor from marker and applies it to region.
//
// The marker centre and region must share a coordinate system: the offset
// is marker.Center minus region.TopLeft and is not clamped. A marker
// without diameter, a non-positive knownDiameter or a region with a zero
// side returns ErrDegenerateGeometry before any division.
func Calibrate(marker detection.Marker, region detection.Region, knownDiameter float64) (*Result, error) {
	diameter := marker.Diameter()
	if diameter <= 0 {
		return nil, fmt.Errorf("%w: marker diameter %d px", ErrDegenerateGeometry, diameter)
	}
	if knownDiameter <= 0 {
		return nil, fmt.Errorf("%w: known marker diameter %g", ErrDegenerateGeometry, knownDiameter)
	}
	ratio, err := AspectRatio(region.Size)
	if err != nil {
		return nil, err
	}

	scale := knownDiameter / float64(diameter)
	offset := marker.Center.Sub(region.TopLeft)

	return &Result{
		ScaleFactor:          scale,
		MarkerDiameterPixels: diameter,
		SheetSizePixels:      region.Size,
		SheetSizePhysical: PhysicalSize{
			Width:  float64(region.Size.Width) * scale,
			Height: float64(region.Size.Height) * scale,
		},
		MarkerOffsetPixels:   Offset{X: offset.X, Y: offset.Y},
		MarkerOffsetPhysical: Vector{X: float64(offset.X) * scale, Y: float64(offset.Y) * scale},
		AspectRatio:          ratio,
		Unit:                 DefaultUnit,
	}, nil
}

// AspectRatio returns max(w,h)/min(w,h), which is 1 for a square.
func AspectRatio(size detection.Size) (float64, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return 0, fmt.Errorf("%w: sheet size %dx%d", ErrDegenerateGeometry, size.Width, size.Height)
	}
	w, h := float64(size.Width), float64(size.Height)
	return max(w, h) / min(w, h), nil
}
