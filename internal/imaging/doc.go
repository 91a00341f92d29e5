// Package imaging provides the raster operations the calibration pipeline is
// built on.
//
// A Raster is an immutable decoded image. Its derivatives (luma, binary
// threshold, Gaussian blur, crop, resize) are new values, so one raster can
// feed several pipeline stages, or several goroutines, without copying.
// The package also loads and caches source images, lists batch folders,
// draws marker annotations and physical-unit grids, and converts pixel
// distances into physical ones.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Rasters are always
// anchored at (0,0), whatever the bounds of the decoded image were.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Raster methods never mutate the
// receiver and may be called concurrently.
//
// # Error Handling
//
// Every failure to open or decode a source image wraps ErrUnreadableImage,
// so callers can classify it with errors.Is.
package imaging
