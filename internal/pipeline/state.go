package pipeline

// State is a step of a single pipeline run.
type State int

const (
	Start State = iota
	RectangleFound
	NoRectangle
	Deskewed
	RectangleReFound
	NoRectangleAfterRotation
	MarkersFound
	NoMarkers
	Calibrated
	AmbiguousMarkers
)

var stateNames = [...]string{
	Start:                    "start",
	RectangleFound:           "rectangle_found",
	NoRectangle:              "no_rectangle",
	Deskewed:                 "deskewed",
	RectangleReFound:         "rectangle_refound",
	NoRectangleAfterRotation: "no_rectangle_after_rotation",
	MarkersFound:             "markers_found",
	NoMarkers:                "no_markers",
	Calibrated:               "calibrated",
	AmbiguousMarkers:         "ambiguous_markers",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case NoRectangle, NoRectangleAfterRotation, NoMarkers, Calibrated, AmbiguousMarkers:
		return true
	}
	return false
}

// Success reports whether s is the calibrated end state.
func (s State) Success() bool { return s == Calibrated }

// transitions lists the legal successors of every non-terminal state.
var transitions = map[State][]State{
	Start:            {RectangleFound, NoRectangle},
	RectangleFound:   {Deskewed, NoRectangle},
	Deskewed:         {RectangleReFound, NoRectangleAfterRotation},
	RectangleReFound: {MarkersFound, NoMarkers},
	MarkersFound:     {Calibrated, AmbiguousMarkers, NoMarkers},
}

// CanTransition reports whether the machine may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Mode selects how multiple markers on one sheet are handled.
type Mode int

const (
	// ModeSingle calibrates with the primary marker; callers may re-select.
	ModeSingle Mode = iota

	// ModeBatch requires exactly one marker per sheet.
	ModeBatch
)

func (m Mode) String() string {
	if m == ModeBatch {
		return "batch"
	}
	return "single"
}
