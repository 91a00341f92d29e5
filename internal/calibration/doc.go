// Package calibration converts pixel measurements of a reference sheet
// into physical units.
//
// A marker of known physical diameter fixes the scale factor (physical
// units per pixel). The sheet's size and the marker's offset from the
// sheet's top-left corner are then reported in both pixels and physical
// units, together with the sheet's aspect ratio.
//
// # Batch Comparison
//
// When several photographs of the same sheet are processed, the first
// successful result becomes the Baseline. Later results are compared
// against it with a ratio margin and get a Verdict: too large, too small
// or identical.
package calibration
