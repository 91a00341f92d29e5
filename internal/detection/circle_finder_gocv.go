//go:build gocv

package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// circleBackend names the circle finder compiled into this binary.
const circleBackend = "opencv-hough-gradient"

// findCircles runs OpenCV's HOUGH_GRADIENT on the blurred sheet.
//
// Requires OpenCV 4.x installed on the build machine; build with
// -tags gocv.
func findCircles(blurred *image.Gray, p HoughParams) ([]circle, error) {
	src, err := gocv.ImageGrayToMatGray(blurred)
	if err != nil {
		return nil, fmt.Errorf("failed to convert sheet to mat: %w", err)
	}
	defer src.Close()

	circles := gocv.NewMat()
	defer circles.Close()

	gocv.HoughCirclesWithParams(src, &circles, gocv.HoughGradient, p.DP, p.MinDist,
		p.Param1, p.Param2, p.MinRadius, p.MaxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return nil, nil
	}

	out := make([]circle, 0, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		out = append(out, circle{
			X: float64(circles.GetFloatAt(0, i*3)),
			Y: float64(circles.GetFloatAt(0, i*3+1)),
			R: float64(circles.GetFloatAt(0, i*3+2)),
		})
	}
	return out, nil
}
