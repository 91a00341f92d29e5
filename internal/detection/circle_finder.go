//go:build !gocv

package detection

import "image"

// circleBackend names the circle finder compiled into this binary.
const circleBackend = "hough-gradient"

// findCircles runs the pure Go circle transform.
func findCircles(blurred *image.Gray, p HoughParams) ([]circle, error) {
	return houghCircles(blurred, p), nil
}
