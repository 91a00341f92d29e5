// Package detection locates the reference sheet and its circular markers.
//
// Two detectors make up the package:
//
//   - DetectSheet binarizes a raster, extracts external contours and returns
//     the bounding box of the largest one as a Region
//   - MarkerDetector blurs the cropped sheet and runs a gradient Hough
//     circle transform, returning Markers in a deterministic order
//
// MinAreaRect, used by the deskew stage, fits the minimum-area rotated
// rectangle around a region's contour.
//
// # Backends
//
// The default build is pure Go: Moore-neighbour contour tracing, rotating
// calipers for MinAreaRect and a gradient Hough transform (Canny edges,
// voting along the gradient, radius histogram) for circles. Building with
// -tags gocv swaps in OpenCV's findContours, contourArea, minAreaRect and
// HoughCircles through gocv, which requires OpenCV installed on the build
// machine. Both builds take the same parameters and order their results
// the same way.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Region sizes are pixel extents, so TopLeft+Size is one past the last
//     pixel
//
// Angles follow the same axes: a positive angle turns from +X towards +Y,
// which is clockwise on screen.
//
// # Marker Order
//
// Circle finders return circles in an order that depends on the
// implementation. FindMarkers therefore sorts by (Y, X, Radius) and the
// first marker is the primary one used for calibration.
package detection
