// Package session holds the interactive state of one calibrated sheet:
// its markers and which of them the user selected.
//
// Sessions are values. HandleClick returns a new Session rather than
// mutating its argument, so a UI event loop and a server can share the
// same logic without locks of their own.
package session

import (
	"image"

	"github.com/ironsheep/sheet-calibration-mcp/internal/detection"
	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
)

// Session is the selection state over a sheet's markers. Selected is an
// index into Markers, or -1.
type Session struct {
	Markers  []detection.Marker
	Sheet    *imaging.Raster
	Selected int
}

// New starts a session with the primary marker selected, or none when
// markers is empty.
func New(sheet *imaging.Raster, markers []detection.Marker) Session {
	selected := -1
	if len(markers) > 0 {
		selected = 0
	}
	return Session{Markers: markers, Sheet: sheet, Selected: selected}
}

// HandleClick selects the first marker containing p. It reports whether
// the selection changed; a click outside every marker keeps the current
// selection.
func HandleClick(s Session, p image.Point) (Session, bool) {
	i := detection.MarkerAt(s.Markers, p)
	if i < 0 || i == s.Selected {
		return s, false
	}
	s.Selected = i
	return s, true
}

// SelectedMarker returns the selected marker, if any.
func (s Session) SelectedMarker() (detection.Marker, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Markers) {
		return detection.Marker{}, false
	}
	return s.Markers[s.Selected], true
}

// Render draws the markers on a copy of the sheet, the selected one in the
// style's primary colour.
func (s Session) Render(style imaging.Style) (*image.RGBA, error) {
	circles := make([]imaging.Circle, len(s.Markers))
	for i, m := range s.Markers {
		circles[i] = imaging.Circle{X: m.Center.X, Y: m.Center.Y, Radius: m.Radius}
	}
	return imaging.Annotate(s.Sheet, circles, s.Selected, style)
}
