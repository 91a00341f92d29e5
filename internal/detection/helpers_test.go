package detection

import (
	"image"
	"image/color"
	"math"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createRectangleImage creates a black canvas with a filled white rectangle
// covering [x1,x2) × [y1,y2).
func createRectangleImage(width, height int, x1, y1, x2, y2 int) *image.RGBA {
	img := createTestImage(width, height, color.Black)
	fillRect(img, image.Rect(x1, y1, x2, y2), color.White)
	return img
}

// createRotatedRectangleImage creates a black canvas with a filled white
// rectangle of size rw × rh centred on (cx, cy) and turned by angleDeg
// (positive is clockwise on screen).
func createRotatedRectangleImage(width, height int, cx, cy, rw, rh, angleDeg float64) *image.RGBA {
	img := createTestImage(width, height, color.Black)
	rad := angleDeg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			// Rotate back into the rectangle's frame.
			u := dx*cos + dy*sin
			v := -dx*sin + dy*cos
			if math.Abs(u) <= rw/2 && math.Abs(v) <= rh/2 {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

// createCircleImage creates a white sheet with a filled black disk.
func createCircleImage(width, height, cx, cy, radius int) *image.RGBA {
	img := createTestImage(width, height, color.White)
	fillCircle(img, cx, cy, radius, color.Black)
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func fillCircle(img *image.RGBA, cx, cy, radius int, c color.Color) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius && image.Pt(x, y).In(img.Bounds()) {
				img.Set(x, y, c)
			}
		}
	}
}

// binary converts an image to the 0/255 mask used by contour extraction.
func binary(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			if r>>8 >= 128 {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
