package detection

import (
	"image"
	"math"
)

// Contour is the ordered outer boundary of one foreground component.
type Contour []image.Point

// Area returns the area enclosed by the contour. Contours of fewer than
// three points enclose nothing.
func (c Contour) Area() float64 {
	return contourArea(c)
}

// shoelaceArea is the polygon area of c by the shoelace formula.
func shoelaceArea(c Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	for i := range c {
		j := (i + 1) % len(c)
		sum += float64(c[i].X*c[j].Y - c[j].X*c[i].Y)
	}
	return math.Abs(sum) / 2
}

// BoundingBox returns the inclusive pixel extent of the contour as a
// rectangle whose Max is one past the last pixel.
func (c Contour) BoundingBox() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	minX, minY := c[0].X, c[0].Y
	maxX, maxY := minX, minY
	for _, p := range c[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// neighbours lists the 8 directions clockwise (y grows downward),
// starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

// findExternalContours extracts the outer boundary of every foreground
// component of a binary image that is not nested inside a hole of another
// component.
//
// Foreground is any non-zero pixel. Foreground components are 8-connected
// and background regions 4-connected, so a diagonal gap never opens a hole
// to the outside. Pixels beyond the image border count as background
// connected to the outside.
//
// # Algorithm
//
//  1. Flood-fill the background reachable from the image border
//  2. Label foreground components with an iterative 8-connected flood fill
//  3. Keep components that touch the border or the outside background
//  4. Trace each kept component's boundary with Moore-neighbour tracing,
//     starting at its first pixel in raster order
//
// Contours are returned in the raster order of their starting pixels.
func findExternalContours(bin *image.Gray) []Contour {
	b := bin.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	fg := make([]bool, width*height)
	for y := 0; y < height; y++ {
		row := bin.Pix[y*bin.Stride : y*bin.Stride+width]
		for x, v := range row {
			fg[y*width+x] = v != 0
		}
	}

	outside := fillOutside(fg, width, height)

	labels := make([]int32, width*height)
	contours := make([]Contour, 0)
	var label int32

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if !fg[i] || labels[i] != 0 {
				continue
			}
			label++
			external := labelComponent(fg, labels, outside, x, y, width, height, label)
			if external {
				contours = append(contours, traceBoundary(labels, image.Point{X: x, Y: y}, width, height, label))
			}
		}
	}
	return contours
}

// fillOutside marks background pixels 4-connected to the image border.
func fillOutside(fg []bool, width, height int) []bool {
	outside := make([]bool, width*height)
	stack := make([]image.Point, 0, 2*(width+height))

	push := func(x, y int) {
		i := y*width + x
		if !fg[i] && !outside[i] {
			outside[i] = true
			stack = append(stack, image.Point{X: x, Y: y})
		}
	}

	for x := 0; x < width; x++ {
		push(x, 0)
		push(x, height-1)
	}
	for y := 0; y < height; y++ {
		push(0, y)
		push(width-1, y)
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.X > 0 {
			push(p.X-1, p.Y)
		}
		if p.X < width-1 {
			push(p.X+1, p.Y)
		}
		if p.Y > 0 {
			push(p.X, p.Y-1)
		}
		if p.Y < height-1 {
			push(p.X, p.Y+1)
		}
	}
	return outside
}

// labelComponent assigns label to the 8-connected component containing
// (startX, startY) and reports whether the component is external.
//
// Uses a stack rather than recursion so large sheets cannot overflow the
// goroutine stack.
func labelComponent(fg []bool, labels []int32, outside []bool, startX, startY, width, height int, label int32) bool {
	external := false
	stack := []image.Point{{X: startX, Y: startY}}
	labels[startY*width+startX] = label

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
			external = true
		}

		for d, n := range neighbours {
			nx, ny := p.X+n.X, p.Y+n.Y
			if nx < 0 || ny < 0 || nx >= width || ny >= height {
				continue
			}
			i := ny*width + nx
			if fg[i] {
				if labels[i] == 0 {
					labels[i] = label
					stack = append(stack, image.Point{X: nx, Y: ny})
				}
			} else if d%2 == 0 && outside[i] {
				external = true
			}
		}
	}
	return external
}

// traceBoundary follows the outer boundary of the component carrying label
// clockwise, starting at its top-left pixel.
//
// Each step sweeps the neighbours of the current pixel clockwise, beginning
// just after the pixel it was entered from; the first pixel of the
// component found is the next boundary pixel. Tracing stops when the start
// pixel is about to be left in the same direction as the first step.
func traceBoundary(labels []int32, start image.Point, width, height int, label int32) Contour {
	inComponent := func(p image.Point) bool {
		if p.X < 0 || p.Y < 0 || p.X >= width || p.Y >= height {
			return false
		}
		return labels[p.Y*width+p.X] == label
	}
	sweep := func(p image.Point, from int) int {
		for k := 0; k < 8; k++ {
			d := (from + k) % 8
			if inComponent(p.Add(neighbours[d])) {
				return d
			}
		}
		return -1
	}

	contour := Contour{start}

	// The pixel west of the start is background, so the sweep begins there.
	first := sweep(start, 4)
	if first < 0 {
		return contour
	}

	cur, dir := start, first
	for steps := 0; steps < 4*width*height; steps++ {
		cur = cur.Add(neighbours[dir])
		next := sweep(cur, (dir+5)%8)
		if cur == start && next == first {
			break
		}
		contour = append(contour, cur)
		dir = next
	}
	return contour
}
