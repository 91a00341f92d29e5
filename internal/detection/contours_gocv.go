//go:build gocv

package detection

import (
	"fmt"
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"
)

// contourBackend names the contour extractor compiled into this binary.
const contourBackend = "opencv-find-contours"

// externalContours runs OpenCV's findContours with RETR_EXTERNAL.
//
// OpenCV lists contours in its own order; they are sorted by their first
// pixel in raster order so ties on area resolve as in the pure Go build.
func externalContours(bin *image.Gray) ([]Contour, error) {
	src, err := gocv.ImageGrayToMatGray(bin)
	if err != nil {
		return nil, fmt.Errorf("failed to convert mask to mat: %w", err)
	}
	defer src.Close()

	found := gocv.FindContours(src, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]Contour, 0, found.Size())
	for _, pts := range found.ToPoints() {
		if len(pts) > 0 {
			contours = append(contours, Contour(pts))
		}
	}
	sort.SliceStable(contours, func(i, j int) bool {
		a, b := rasterFirst(contours[i]), rasterFirst(contours[j])
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return contours, nil
}

// rasterFirst returns the top-most, then left-most point of c.
func rasterFirst(c Contour) image.Point {
	first := c[0]
	for _, p := range c[1:] {
		if p.Y < first.Y || (p.Y == first.Y && p.X < first.X) {
			first = p
		}
	}
	return first
}

func contourArea(c Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	pv := gocv.NewPointVectorFromPoints(c)
	defer pv.Close()
	return gocv.ContourArea(pv)
}

// fitRotatedRect takes the orientation from OpenCV's minAreaRect and
// measures the extents along it in floating point, since gocv reports an
// integer centre and sides. Inputs whose hull has fewer than three points
// go through rotatingCalipers.
func fitRotatedRect(points []image.Point) RotatedRect {
	if len(convexHull(points)) < 3 {
		return rotatingCalipers(points)
	}

	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()
	box := gocv.MinAreaRect(pv)

	rad := box.Angle * math.Pi / 180
	ux, uy := math.Cos(rad), math.Sin(rad)
	vx, vy := -uy, ux

	minU, maxU := math.Inf(1), math.Inf(-1)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		px, py := float64(p.X), float64(p.Y)
		u := px*ux + py*uy
		v := px*vx + py*vy
		minU, maxU = math.Min(minU, u), math.Max(maxU, u)
		minV, maxV = math.Min(minV, v), math.Max(maxV, v)
	}
	cu, cv := (minU+maxU)/2, (minV+maxV)/2

	return normalizeRectAngle(RotatedRect{
		CenterX: cu*ux + cv*vx,
		CenterY: cu*uy + cv*vy,
		Width:   maxU - minU,
		Height:  maxV - minV,
		Angle:   box.Angle,
	})
}
