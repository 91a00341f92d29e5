package detection

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
)

func TestFindMarkers_SingleMarker(t *testing.T) {
	sheet := imaging.NewRaster(createCircleImage(600, 400, 300, 200, 20))
	d := NewMarkerDetector(DefaultBlurParams(), DefaultHoughParams())

	markers, err := d.FindMarkers(sheet)
	if err != nil {
		t.Fatalf("FindMarkers failed: %v", err)
	}
	if len(markers) == 0 {
		t.Fatal("expected at least one marker")
	}

	p := DefaultHoughParams()
	found := false
	for _, m := range markers {
		if m.Radius < p.MinRadius || m.Radius > p.MaxRadius {
			t.Errorf("marker radius %d outside [%d,%d]", m.Radius, p.MinRadius, p.MaxRadius)
		}
		if abs(m.Radius-20) <= 2 && abs(m.Center.X-300) <= 2 && abs(m.Center.Y-200) <= 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("no marker near (300,200) r=20 in %+v", markers)
	}
}

func TestFindMarkers_RadiusWithinBounds(t *testing.T) {
	tests := []struct {
		name   string
		radius int
	}{
		{"small", 8},
		{"medium", 15},
		{"large", 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := imaging.NewRaster(createCircleImage(200, 200, 100, 100, tt.radius))
			markers, err := NewMarkerDetector(DefaultBlurParams(), DefaultHoughParams()).FindMarkers(sheet)
			if err != nil {
				t.Fatalf("FindMarkers failed: %v", err)
			}
			if len(markers) == 0 {
				t.Fatal("expected a marker")
			}
			if abs(markers[0].Radius-tt.radius) > 2 {
				t.Errorf("radius: got %d, want %d±2", markers[0].Radius, tt.radius)
			}
		})
	}
}

func TestFindMarkers_DeterministicOrder(t *testing.T) {
	img := createCircleImage(400, 300, 300, 80, 15)
	fillCircle(img, 100, 200, 15, color.Black)
	fillCircle(img, 100, 80, 15, color.Black)

	markers, err := NewMarkerDetector(DefaultBlurParams(), DefaultHoughParams()).FindMarkers(imaging.NewRaster(img))
	if err != nil {
		t.Fatalf("FindMarkers failed: %v", err)
	}
	if len(markers) != 3 {
		t.Fatalf("expected 3 markers, got %+v", markers)
	}
	want := []image.Point{{100, 80}, {300, 80}, {100, 200}}
	for i, w := range want {
		m := markers[i]
		if abs(m.Center.X-w.X) > 2 || abs(m.Center.Y-w.Y) > 2 {
			t.Errorf("marker %d: got %v, want near %v", i, m.Center, w)
		}
	}
}

func TestFindMarkers_None(t *testing.T) {
	sheet := imaging.NewRaster(createTestImage(300, 200, color.White))
	markers, err := NewMarkerDetector(DefaultBlurParams(), DefaultHoughParams()).FindMarkers(sheet)
	if err != nil {
		t.Fatalf("FindMarkers failed: %v", err)
	}
	if markers == nil || len(markers) != 0 {
		t.Errorf("expected an empty, non-nil slice, got %#v", markers)
	}
}

func TestFindMarkers_InvalidBlur(t *testing.T) {
	sheet := imaging.NewRaster(createTestImage(50, 50, color.White))
	_, err := NewMarkerDetector(BlurParams{KernelSize: 4, Sigma: 2}, DefaultHoughParams()).FindMarkers(sheet)
	if err == nil {
		t.Error("FindMarkers should fail with an even kernel")
	}
}

func TestSortMarkers(t *testing.T) {
	markers := []Marker{
		{Center: image.Pt(50, 20), Radius: 5},
		{Center: image.Pt(10, 30), Radius: 5},
		{Center: image.Pt(10, 20), Radius: 9},
		{Center: image.Pt(10, 20), Radius: 4},
	}
	SortMarkers(markers)

	want := []Marker{
		{Center: image.Pt(10, 20), Radius: 4},
		{Center: image.Pt(10, 20), Radius: 9},
		{Center: image.Pt(50, 20), Radius: 5},
		{Center: image.Pt(10, 30), Radius: 5},
	}
	for i := range want {
		if markers[i] != want[i] {
			t.Errorf("position %d: got %+v, want %+v", i, markers[i], want[i])
		}
	}
}

func TestPrimaryMarker(t *testing.T) {
	if _, err := PrimaryMarker(nil); !errors.Is(err, ErrNoMarkers) {
		t.Errorf("empty set: got %v, want ErrNoMarkers", err)
	}

	m := []Marker{{Center: image.Pt(1, 2), Radius: 3}, {Center: image.Pt(4, 5), Radius: 6}}
	got, err := PrimaryMarker(m)
	if err != nil {
		t.Fatalf("PrimaryMarker failed: %v", err)
	}
	if got != m[0] {
		t.Errorf("got %+v, want %+v", got, m[0])
	}
}

func TestMarker_Contains(t *testing.T) {
	m := Marker{Center: image.Pt(50, 50), Radius: 10}

	tests := []struct {
		p    image.Point
		want bool
	}{
		{image.Pt(50, 50), true},
		{image.Pt(59, 50), true},
		{image.Pt(60, 50), false},
		{image.Pt(57, 57), true},
		{image.Pt(58, 58), false},
		{image.Pt(0, 0), false},
	}
	for _, tt := range tests {
		if got := m.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if m.Diameter() != 20 {
		t.Errorf("Diameter: got %d, want 20", m.Diameter())
	}
}

func TestMarkerAt(t *testing.T) {
	markers := []Marker{
		{Center: image.Pt(20, 20), Radius: 10},
		{Center: image.Pt(25, 20), Radius: 10},
		{Center: image.Pt(100, 100), Radius: 5},
	}
	tests := []struct {
		p    image.Point
		want int
	}{
		{image.Pt(22, 20), 0},
		{image.Pt(33, 20), 1},
		{image.Pt(101, 99), 2},
		{image.Pt(60, 60), -1},
	}
	for _, tt := range tests {
		if got := MarkerAt(markers, tt.p); got != tt.want {
			t.Errorf("MarkerAt(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}
