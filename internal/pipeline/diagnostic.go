package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ironsheep/sheet-calibration-mcp/internal/detection"
	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
)

var (
	// ErrAmbiguousMarkers is returned in batch mode when a sheet carries
	// more than one marker.
	ErrAmbiguousMarkers = errors.New("more than one marker found")

	// ErrFirstImageAmbiguous stops a batch whose first image is ambiguous,
	// since no baseline can be trusted.
	ErrFirstImageAmbiguous = errors.New("first image of the batch has ambiguous markers")

	// ErrInternal wraps a recovered panic.
	ErrInternal = errors.New("internal error")
)

// Kind classifies a failed run.
type Kind string

const (
	KindNone               Kind = ""
	KindNoRectangleFound   Kind = "NoRectangleFound"
	KindNoMarkersFound     Kind = "NoMarkersFound"
	KindAmbiguousMarkers   Kind = "AmbiguousMarkers"
	KindDegenerateGeometry Kind = "DegenerateGeometry"
	KindUnreadableImage    Kind = "UnreadableImage"
	KindCancelled          Kind = "Cancelled"
	KindInternal           Kind = "Internal"
)

// KindOf maps an error to its kind by the sentinel it wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, detection.ErrDegenerateGeometry):
		return KindDegenerateGeometry
	case errors.Is(err, detection.ErrNoRectangle):
		return KindNoRectangleFound
	case errors.Is(err, detection.ErrNoMarkers):
		return KindNoMarkersFound
	case errors.Is(err, ErrAmbiguousMarkers), errors.Is(err, ErrFirstImageAmbiguous):
		return KindAmbiguousMarkers
	case errors.Is(err, imaging.ErrUnreadableImage):
		return KindUnreadableImage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}

// Diagnostic is the reported form of a failed run.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Path    string `json:"path,omitempty"`
	State   State  `json:"state"`
	Message string `json:"message"`
}

func (d *Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Path, d.Kind, d.Message)
}
