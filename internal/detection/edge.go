package detection

import (
	"image"
	"math"
)

// gradientField holds the Sobel derivatives and Canny edges of a grayscale
// image, row-major.
type gradientField struct {
	width, height int
	dx, dy        []float64
	edges         []bool
}

// at returns the index of pixel (x, y).
func (g *gradientField) at(x, y int) int { return y*g.width + x }

// canny performs Canny edge detection on an already smoothed image.
//
// Parameters:
//   - src: Grayscale source. No smoothing is applied here; the marker
//     detector blurs before calling.
//   - low: Hysteresis low threshold on the L1 gradient magnitude.
//   - high: Hysteresis high threshold.
//
// # Algorithm
//
//  1. Gradient computation: 3x3 Sobel operators, magnitude |Gx| + |Gy|
//  2. Non-maximum suppression: keep pixels that are local maxima along the
//     gradient direction, quantized to 0°, 45°, 90° or 135°
//  3. Hysteresis: pixels above high are strong edges; pixels above low are
//     kept when 8-connected to a strong edge through other kept pixels
//
// Border pixels are never edges. The derivatives are kept in the result so
// the circle transform can vote along the gradient direction.
func canny(src *image.Gray, low, high float64) *gradientField {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	g := &gradientField{
		width:  width,
		height: height,
		dx:     make([]float64, width*height),
		dy:     make([]float64, width*height),
		edges:  make([]bool, width*height),
	}
	if width < 3 || height < 3 {
		return g
	}

	pix := func(x, y int) float64 {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return float64(src.Pix[y*src.Stride+x])
	}

	magnitude := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := -pix(x-1, y-1) + pix(x+1, y-1) +
				-2*pix(x-1, y) + 2*pix(x+1, y) +
				-pix(x-1, y+1) + pix(x+1, y+1)
			gy := -pix(x-1, y-1) - 2*pix(x, y-1) - pix(x+1, y-1) +
				pix(x-1, y+1) + 2*pix(x, y+1) + pix(x+1, y+1)
			i := g.at(x, y)
			g.dx[i] = gx
			g.dy[i] = gy
			magnitude[i] = math.Abs(gx) + math.Abs(gy)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := g.at(x, y)
			mag := magnitude[i]
			if mag < low {
				continue
			}

			angle := math.Atan2(g.dy[i], g.dx[i])

			// Determine neighbors to compare based on gradient direction
			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[i-width-1]
				n2 = magnitude[i+width+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[i-width]
				n2 = magnitude[i+width]
			} else {
				n1 = magnitude[i-width+1]
				n2 = magnitude[i+width-1]
			}

			// Ties break towards the earlier pixel so a plateau yields a
			// one-pixel edge.
			if mag > n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Hysteresis: grow strong edges through weak ones.
	stack := make([]int, 0)
	for i, v := range suppressed {
		if v > high {
			g.edges[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for _, n := range neighbours {
			nx, ny := x+n.X, y+n.Y
			if nx < 1 || ny < 1 || nx >= width-1 || ny >= height-1 {
				continue
			}
			j := g.at(nx, ny)
			if !g.edges[j] && suppressed[j] > low {
				g.edges[j] = true
				stack = append(stack, j)
			}
		}
	}
	return g
}

// clamp constrains an integer value to the range [lo, hi].
// Used for boundary handling in convolution operations.
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
