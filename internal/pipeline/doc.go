// Package pipeline runs the calibration stages over one image or a folder.
//
// A single run moves through a fixed state machine:
//
//	Start → RectangleFound | NoRectangle
//	RectangleFound → Deskewed
//	Deskewed → RectangleReFound | NoRectangleAfterRotation
//	RectangleReFound → MarkersFound | NoMarkers
//	MarkersFound → Calibrated | AmbiguousMarkers (batch mode only)
//
// Run never returns an error value. Every failure ends in a terminal state
// and is described by the Outcome's Diagnostic, so a batch always moves on
// to its next image. Panics inside a stage are recovered, logged with their
// stack and reported with the Internal kind.
//
// Batch runs each image independently, optionally on several workers, and
// then walks the results in folder order: the first calibrated image
// publishes the baseline and every later one is compared against it.
package pipeline
