package detection

import (
	"image"
	"math"
	"sort"
)

// RotatedRect is a rectangle of arbitrary orientation.
type RotatedRect struct {
	CenterX, CenterY float64
	Width, Height    float64

	// Angle in degrees within (-90, 0]: the rotation of the Width side
	// from the x axis, positive turning from +x towards +y.
	Angle float64
}

// MinAreaRect returns the rotated rectangle of minimum area enclosing
// points, with the angle normalized into (-90, 0]. Fewer than three
// distinct points give a rectangle of zero height (two points) or zero
// size (one point).
func MinAreaRect(points []image.Point) RotatedRect {
	return fitRotatedRect(points)
}

// rotatingCalipers finds the minimum-area rectangle over the convex hull:
// the optimal rectangle has one side collinear with a hull edge, so every
// edge direction is tried.
func rotatingCalipers(points []image.Point) RotatedRect {
	hull := convexHull(points)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{CenterX: float64(hull[0].X), CenterY: float64(hull[0].Y)}
	}

	var best RotatedRect
	bestArea := math.Inf(1)

	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		ex, ey := float64(b.X-a.X), float64(b.Y-a.Y)
		length := math.Hypot(ex, ey)
		if length == 0 {
			continue
		}
		ux, uy := ex/length, ey/length
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := float64(p.X), float64(p.Y)
			u := px*ux + py*uy
			v := px*vx + py*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		w, h := maxU-minU, maxV-minV
		if area := w * h; area < bestArea-1e-9 {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			best = RotatedRect{
				CenterX: cu*ux + cv*vx,
				CenterY: cu*uy + cv*vy,
				Width:   w,
				Height:  h,
				Angle:   math.Atan2(uy, ux) * 180 / math.Pi,
			}
		}
	}

	return normalizeRectAngle(best)
}

// normalizeRectAngle brings the angle into (-90, 0], swapping the sides for
// every quarter turn.
func normalizeRectAngle(r RotatedRect) RotatedRect {
	for r.Angle > 0 {
		r.Angle -= 90
		r.Width, r.Height = r.Height, r.Width
	}
	for r.Angle <= -90 {
		r.Angle += 90
		r.Width, r.Height = r.Height, r.Width
	}
	if math.Abs(r.Angle) < 1e-9 {
		r.Angle = 0
	}
	return r
}

// convexHull returns the convex hull of points with Andrew's monotone
// chain. Collinear points on the hull are dropped.
func convexHull(points []image.Point) []image.Point {
	pts := make([]image.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	// Deduplicate
	n := 0
	for i, p := range pts {
		if i == 0 || p != pts[n-1] {
			pts[n] = p
			n++
		}
	}
	pts = pts[:n]
	if len(pts) < 3 {
		return pts
	}

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
