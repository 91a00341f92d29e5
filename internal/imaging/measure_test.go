package imaging

import (
	"image"
	"math"
	"testing"
)

func TestMeasureDistance(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 int
		wantDistance   float64
		wantDeltaX     int
		wantDeltaY     int
		wantAngle      float64
	}{
		{"horizontal right", 0, 50, 100, 50, 100, 100, 0, 0},
		{"horizontal left", 100, 50, 0, 50, 100, -100, 0, 180},
		{"vertical down", 50, 0, 50, 100, 100, 0, 100, 90},
		{"vertical up", 50, 100, 50, 0, 100, 0, -100, -90},
		{"diagonal", 0, 0, 100, 100, 141.42, 100, 100, 45},
		{"same point", 50, 50, 50, 50, 0, 0, 0, 0},
		{"3-4-5 triangle", 0, 0, 3, 4, 5, 3, 4, 53.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MeasureDistance(image.Pt(tt.x1, tt.y1), image.Pt(tt.x2, tt.y2), 0, "")

			if result.DeltaX != tt.wantDeltaX {
				t.Errorf("DeltaX: got %d, want %d", result.DeltaX, tt.wantDeltaX)
			}
			if result.DeltaY != tt.wantDeltaY {
				t.Errorf("DeltaY: got %d, want %d", result.DeltaY, tt.wantDeltaY)
			}

			// Allow small tolerance for floating point
			if math.Abs(result.DistancePixels-tt.wantDistance) > 0.1 {
				t.Errorf("DistancePixels: got %.2f, want %.2f", result.DistancePixels, tt.wantDistance)
			}
			if math.Abs(result.AngleDegrees-tt.wantAngle) > 0.5 {
				t.Errorf("AngleDegrees: got %.1f, want %.1f", result.AngleDegrees, tt.wantAngle)
			}
			if result.Unit != "" || result.DistancePhysical != 0 {
				t.Errorf("physical values set without scale: %+v", result)
			}
		})
	}
}

func TestMeasureDistance_Physical(t *testing.T) {
	// 40 px marker of 0.55 cm.
	scale := 0.55 / 40
	result := MeasureDistance(image.Pt(0, 0), image.Pt(300, 400), scale, "cm")

	if result.Unit != "cm" {
		t.Errorf("Unit: got %q, want cm", result.Unit)
	}
	if math.Abs(result.DistancePhysical-6.875) > 0.001 {
		t.Errorf("DistancePhysical: got %.3f, want 6.875", result.DistancePhysical)
	}
	if math.Abs(result.DeltaXPhysical-4.125) > 0.001 {
		t.Errorf("DeltaXPhysical: got %.3f, want 4.125", result.DeltaXPhysical)
	}
	if math.Abs(result.DeltaYPhysical-5.5) > 0.001 {
		t.Errorf("DeltaYPhysical: got %.3f, want 5.5", result.DeltaYPhysical)
	}
}
