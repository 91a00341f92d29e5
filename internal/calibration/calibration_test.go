package calibration

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/ironsheep/sheet-calibration-mcp/internal/detection"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCalibrate(t *testing.T) {
	region := detection.Region{
		TopLeft: image.Point{X: 200, Y: 200},
		Size:    detection.Size{Width: 600, Height: 400},
	}
	marker := detection.Marker{Center: image.Point{X: 500, Y: 400}, Radius: 20}

	res, err := Calibrate(marker, region, 0.55)
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}

	if res.MarkerDiameterPixels != 40 {
		t.Errorf("MarkerDiameterPixels: got %d, want 40", res.MarkerDiameterPixels)
	}
	if !approx(res.ScaleFactor, 0.01375) {
		t.Errorf("ScaleFactor: got %g, want 0.01375", res.ScaleFactor)
	}
	if !approx(res.SheetSizePhysical.Width, 8.25) || !approx(res.SheetSizePhysical.Height, 5.5) {
		t.Errorf("SheetSizePhysical: got %+v, want 8.25x5.5", res.SheetSizePhysical)
	}
	if res.MarkerOffsetPixels != (Offset{X: 300, Y: 200}) {
		t.Errorf("MarkerOffsetPixels: got %+v, want {300 200}", res.MarkerOffsetPixels)
	}
	if !approx(res.MarkerOffsetPhysical.X, 4.125) || !approx(res.MarkerOffsetPhysical.Y, 2.75) {
		t.Errorf("MarkerOffsetPhysical: got %+v", res.MarkerOffsetPhysical)
	}
	if !approx(res.AspectRatio, 1.5) {
		t.Errorf("AspectRatio: got %g, want 1.5", res.AspectRatio)
	}
	if res.Unit != "cm" {
		t.Errorf("Unit: got %q", res.Unit)
	}
}

func TestCalibrate_NegativeOffset(t *testing.T) {
	region := detection.Region{TopLeft: image.Point{X: 10, Y: 10}, Size: detection.Size{Width: 50, Height: 50}}
	marker := detection.Marker{Center: image.Point{X: 9, Y: 8}, Radius: 3}

	res, err := Calibrate(marker, region, 1)
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	if res.MarkerOffsetPixels != (Offset{X: -1, Y: -2}) {
		t.Errorf("offset should not be clamped: got %+v", res.MarkerOffsetPixels)
	}
}

func TestCalibrate_ScaleInvariant(t *testing.T) {
	region := detection.Region{Size: detection.Size{Width: 640, Height: 480}}

	tests := []struct {
		radius int
		known  float64
	}{
		{10, 0.5},
		{20, 1.0},
		{40, 2.0},
	}

	var want PhysicalSize
	for i, tt := range tests {
		res, err := Calibrate(detection.Marker{Radius: tt.radius}, region, tt.known)
		if err != nil {
			t.Fatalf("Calibrate(r=%d) failed: %v", tt.radius, err)
		}
		if i == 0 {
			want = res.SheetSizePhysical
			continue
		}
		if !approx(res.SheetSizePhysical.Width, want.Width) || !approx(res.SheetSizePhysical.Height, want.Height) {
			t.Errorf("r=%d known=%g: got %+v, want %+v", tt.radius, tt.known, res.SheetSizePhysical, want)
		}
	}
}

func TestCalibrate_Degenerate(t *testing.T) {
	good := detection.Region{Size: detection.Size{Width: 10, Height: 10}}

	tests := []struct {
		name   string
		marker detection.Marker
		region detection.Region
		known  float64
	}{
		{"zero radius", detection.Marker{Radius: 0}, good, 0.55},
		{"negative radius", detection.Marker{Radius: -2}, good, 0.55},
		{"zero known diameter", detection.Marker{Radius: 5}, good, 0},
		{"zero width", detection.Marker{Radius: 5}, detection.Region{Size: detection.Size{Width: 0, Height: 10}}, 0.55},
		{"zero height", detection.Marker{Radius: 5}, detection.Region{Size: detection.Size{Width: 10, Height: 0}}, 0.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calibrate(tt.marker, tt.region, tt.known)
			if res != nil {
				t.Errorf("expected nil result, got %+v", res)
			}
			if !errors.Is(err, ErrDegenerateGeometry) {
				t.Errorf("got %v, want ErrDegenerateGeometry", err)
			}
			if !errors.Is(err, detection.ErrDegenerateGeometry) {
				t.Error("error should match the detection sentinel")
			}
		})
	}
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		size detection.Size
		want float64
	}{
		{detection.Size{Width: 100, Height: 100}, 1},
		{detection.Size{Width: 300, Height: 200}, 1.5},
		{detection.Size{Width: 200, Height: 300}, 1.5},
		{detection.Size{Width: 1, Height: 4}, 4},
	}
	for _, tt := range tests {
		got, err := AspectRatio(tt.size)
		if err != nil {
			t.Fatalf("AspectRatio(%+v) failed: %v", tt.size, err)
		}
		if !approx(got, tt.want) {
			t.Errorf("AspectRatio(%+v) = %g, want %g", tt.size, got, tt.want)
		}
	}
}
