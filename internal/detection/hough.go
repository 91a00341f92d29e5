package detection

import (
	"image"
	"math"
	"sort"
)

// circle is a raw circle transform result in blurred-sheet coordinates.
type circle struct {
	X, Y, R float64
	Votes   int
}

// houghCircles finds circles with the gradient variant of the Hough circle
// transform.
//
// # Algorithm
//
//  1. Edge detection: Canny with high threshold Param1 and low threshold
//     Param1/2
//  2. Accumulator voting: every edge pixel votes for the centres lying on
//     its gradient line, in both directions, at distances from MinRadius to
//     MaxRadius. The accumulator has 1/DP of the image resolution
//  3. Centre candidates: accumulator local maxima with more than Param2
//     votes, strongest first
//  4. Spacing: a candidate closer than MinDist to an accepted centre is
//     dropped
//  5. Radius: the edge-distance histogram bin (1 px wide) with most support
//     wins when its support reaches Param2; the radius is the mean distance
//     of the edge pixels in that bin and its two neighbours
//
// Voting along the gradient costs O(edges × radii) instead of the
// O(edges × radii × angles) of a full circle transform.
func houghCircles(src *image.Gray, p HoughParams) []circle {
	g := canny(src, p.Param1/2, p.Param1)
	width, height := g.width, g.height
	if width == 0 || height == 0 {
		return nil
	}

	dp := p.DP
	if dp < 1 {
		dp = 1
	}
	minR := p.MinRadius
	if minR < 1 {
		minR = 1
	}
	maxR := p.MaxRadius
	if maxR <= 0 || maxR < minR {
		maxR = max(width, height)
	}

	aw := int(math.Ceil(float64(width)/dp)) + 1
	ah := int(math.Ceil(float64(height)/dp)) + 1
	acc := make([]int, aw*ah)

	edgePoints := make([]image.Point, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := g.at(x, y)
			if !g.edges[i] {
				continue
			}
			mag := math.Hypot(g.dx[i], g.dy[i])
			if mag == 0 {
				continue
			}
			edgePoints = append(edgePoints, image.Point{X: x, Y: y})

			ux, uy := g.dx[i]/mag, g.dy[i]/mag
			for _, sign := range [2]float64{1, -1} {
				for r := minR; r <= maxR; r++ {
					ax := int(math.Round((float64(x) + sign*ux*float64(r)) / dp))
					ay := int(math.Round((float64(y) + sign*uy*float64(r)) / dp))
					if ax < 0 || ay < 0 || ax >= aw || ay >= ah {
						break
					}
					acc[ay*aw+ax]++
				}
			}
		}
	}

	type candidate struct {
		x, y, votes int
	}
	candidates := make([]candidate, 0)
	for ay := 1; ay < ah-1; ay++ {
		for ax := 1; ax < aw-1; ax++ {
			i := ay*aw + ax
			v := acc[i]
			if float64(v) <= p.Param2 {
				continue
			}
			// Asymmetric comparison keeps exactly one peak of a plateau.
			if v > acc[i-1] && v >= acc[i+1] && v > acc[i-aw] && v >= acc[i+aw] {
				candidates = append(candidates, candidate{x: ax, y: ay, votes: v})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].votes > candidates[j].votes
	})

	minDist2 := p.MinDist * p.MinDist
	circles := make([]circle, 0)
	for _, c := range candidates {
		cx, cy := float64(c.x)*dp, float64(c.y)*dp

		tooClose := false
		for _, a := range circles {
			dx, dy := a.X-cx, a.Y-cy
			if dx*dx+dy*dy < minDist2 {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		r, ok := estimateRadius(edgePoints, cx, cy, minR, maxR, p.Param2)
		if !ok {
			continue
		}
		circles = append(circles, circle{X: cx, Y: cy, R: r, Votes: c.votes})
	}
	return circles
}

// estimateRadius picks the best supported radius around (cx, cy) from the
// distances of edge pixels to it.
func estimateRadius(edgePoints []image.Point, cx, cy float64, minR, maxR int, minSupport float64) (float64, bool) {
	bins := make([]int, maxR-minR+1)
	dists := make([]float64, 0)
	for _, pt := range edgePoints {
		d := math.Hypot(float64(pt.X)-cx, float64(pt.Y)-cy)
		bin := int(math.Round(d))
		if bin < minR || bin > maxR {
			continue
		}
		bins[bin-minR]++
		dists = append(dists, d)
	}

	best := -1
	for i, n := range bins {
		if best < 0 || n > bins[best] {
			best = i
		}
	}
	if best < 0 || float64(bins[best]) < minSupport {
		return 0, false
	}

	bestR := float64(best + minR)
	var sum float64
	var count int
	for _, d := range dists {
		if math.Abs(math.Round(d)-bestR) <= 1 {
			sum += d
			count++
		}
	}
	return sum / float64(count), true
}
