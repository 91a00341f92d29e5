package imaging

import (
	"image"
	"math"
)

// DistanceResult contains a pixel measurement and, when a scale factor is
// known, its physical equivalent.
type DistanceResult struct {
	DistancePixels   float64 `json:"distance_pixels"`
	DeltaX           int     `json:"delta_x"`
	DeltaY           int     `json:"delta_y"`
	AngleDegrees     float64 `json:"angle_degrees"`
	DistancePhysical float64 `json:"distance_physical,omitempty"`
	DeltaXPhysical   float64 `json:"delta_x_physical,omitempty"`
	DeltaYPhysical   float64 `json:"delta_y_physical,omitempty"`
	Unit             string  `json:"unit,omitempty"`
}

// MeasureDistance measures the distance between two points. scale is the
// physical length per pixel; scale <= 0 returns pixel values only.
//
// The angle is 0 for a horizontal segment pointing right and 90 when
// pointing down (image coordinates).
func MeasureDistance(p1, p2 image.Point, scale float64, unit string) *DistanceResult {
	deltaX := p2.X - p1.X
	deltaY := p2.Y - p1.Y

	distance := math.Hypot(float64(deltaX), float64(deltaY))
	angle := math.Atan2(float64(deltaY), float64(deltaX)) * 180 / math.Pi

	result := &DistanceResult{
		DistancePixels: math.Round(distance*100) / 100,
		DeltaX:         deltaX,
		DeltaY:         deltaY,
		AngleDegrees:   math.Round(angle*10) / 10,
	}
	if scale > 0 {
		result.DistancePhysical = math.Round(distance*scale*1000) / 1000
		result.DeltaXPhysical = math.Round(float64(deltaX)*scale*1000) / 1000
		result.DeltaYPhysical = math.Round(float64(deltaY)*scale*1000) / 1000
		result.Unit = unit
	}
	return result
}
