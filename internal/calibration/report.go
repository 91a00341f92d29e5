package calibration

import (
	"fmt"
	"io"
)

// WriteReport prints r in the human-readable per-image form: sheet size,
// marker diameter, marker offsets and aspect ratio.
func WriteReport(w io.Writer, r *Result) error {
	_, err := fmt.Fprintf(w,
		"Sheet: %.2f x %.2f %s (%d x %d px)\n"+
			"Marker diameter: %d px (scale %.5f %s/px)\n"+
			"Distance from top: %d px, %.2f %s\n"+
			"Distance from left: %d px, %.2f %s\n"+
			"Aspect ratio: %.4f\n",
		r.SheetSizePhysical.Width, r.SheetSizePhysical.Height, r.Unit, r.SheetSizePixels.Width, r.SheetSizePixels.Height,
		r.MarkerDiameterPixels, r.ScaleFactor, r.Unit,
		r.MarkerOffsetPixels.Y, r.MarkerOffsetPhysical.Y, r.Unit,
		r.MarkerOffsetPixels.X, r.MarkerOffsetPhysical.X, r.Unit,
		r.AspectRatio)
	return err
}
