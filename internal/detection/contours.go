//go:build !gocv

package detection

import "image"

// contourBackend names the contour extractor compiled into this binary.
const contourBackend = "moore-trace"

// externalContours runs the pure Go contour extraction.
func externalContours(bin *image.Gray) ([]Contour, error) {
	return findExternalContours(bin), nil
}

func contourArea(c Contour) float64 { return shoelaceArea(c) }

func fitRotatedRect(points []image.Point) RotatedRect { return rotatingCalipers(points) }
