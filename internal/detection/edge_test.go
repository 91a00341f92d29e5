package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
)

func blurredGray(t *testing.T, img image.Image) *image.Gray {
	t.Helper()
	g, err := imaging.NewRaster(img).Blur(9, 2)
	if err != nil {
		t.Fatalf("Blur failed: %v", err)
	}
	return g
}

func TestCanny_VerticalStep(t *testing.T) {
	img := createTestImage(40, 20, color.Black)
	fillRect(img, image.Rect(20, 0, 40, 20), color.White)

	g := canny(blurredGray(t, img), 127.5, 255)

	for y := 1; y < g.height-1; y++ {
		count := 0
		for x := 0; x < g.width; x++ {
			if g.edges[g.at(x, y)] {
				count++
				if x < 18 || x > 21 {
					t.Errorf("row %d: edge at x=%d, want near the step at 20", y, x)
				}
			}
		}
		if count != 1 {
			t.Errorf("row %d: got %d edge pixels, want 1", y, count)
		}
	}
}

func TestCanny_UniformImage(t *testing.T) {
	img := createTestImage(30, 30, color.RGBA{128, 128, 128, 255})
	g := canny(blurredGray(t, img), 50, 100)

	for i, e := range g.edges {
		if e {
			t.Fatalf("uniform image has edge at index %d", i)
		}
	}
}

func TestCanny_BordersNeverEdges(t *testing.T) {
	// A hard step right at the left border.
	img := createTestImage(20, 20, color.White)
	fillRect(img, image.Rect(0, 0, 1, 20), color.Black)
	gray := imaging.NewRaster(img).Gray()

	g := canny(gray, 10, 20)
	for y := 0; y < g.height; y++ {
		if g.edges[g.at(0, y)] || g.edges[g.at(g.width-1, y)] {
			t.Fatalf("border pixel marked as edge in row %d", y)
		}
	}
}

func TestCanny_HighThresholdRejectsWeakEdges(t *testing.T) {
	img := createTestImage(40, 20, color.RGBA{100, 100, 100, 255})
	fillRect(img, image.Rect(20, 0, 40, 20), color.RGBA{110, 110, 110, 255})

	g := canny(blurredGray(t, img), 127.5, 255)
	for _, e := range g.edges {
		if e {
			t.Fatal("low-contrast step should not produce edges")
		}
	}
}

func TestCanny_TinyImage(t *testing.T) {
	g := canny(image.NewGray(image.Rect(0, 0, 2, 2)), 10, 20)
	if len(g.edges) != 4 {
		t.Errorf("edges length: got %d, want 4", len(g.edges))
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		if got := clamp(tt.val, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.lo, tt.hi, got, tt.want)
		}
	}
}
