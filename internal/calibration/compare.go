package calibration

import (
	"fmt"
	"strings"
)

// DefaultMargin is the ratio tolerance of batch comparison (±20%).
const DefaultMargin = 1.2

// Verdict is the outcome of comparing a value against the baseline.
type Verdict string

const (
	VerdictTooLarge  Verdict = "too_large"
	VerdictTooSmall  Verdict = "too_small"
	VerdictIdentical Verdict = "identical"
)

// Describe returns the human-readable form used in batch reports.
func (v Verdict) Describe() string {
	return strings.ReplaceAll(string(v), "_", " ")
}

// Compare classifies value against baseline. value is too large when it
// exceeds baseline·margin, too small when it is below baseline/margin and
// identical otherwise.
func Compare(baseline, value, margin float64) Verdict {
	switch {
	case value > baseline*margin:
		return VerdictTooLarge
	case value < baseline/margin:
		return VerdictTooSmall
	default:
		return VerdictIdentical
	}
}

// CompareSize compares width then height; the first side that is not
// identical decides.
func CompareSize(baseline, value PhysicalSize, margin float64) Verdict {
	if v := Compare(baseline.Width, value.Width, margin); v != VerdictIdentical {
		return v
	}
	return Compare(baseline.Height, value.Height, margin)
}

// Criterion selects what batch comparison looks at.
type Criterion string

const (
	// ByRatio compares aspect ratios, which needs no trusted scale.
	ByRatio Criterion = "ratio"

	// BySize compares physical sheet sizes.
	BySize Criterion = "size"
)

// ParseCriterion accepts "ratio" or "size", case-insensitively. Empty
// means ByRatio.
func ParseCriterion(s string) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ByRatio):
		return ByRatio, nil
	case string(BySize):
		return BySize, nil
	default:
		return "", fmt.Errorf("unknown comparison criterion %q (want ratio or size)", s)
	}
}

// Measurement is the part of a Result that batch comparison uses.
type Measurement struct {
	AspectRatio float64      `json:"aspect_ratio"`
	Size        PhysicalSize `json:"size"`
}

// Measure extracts the comparison values of r.
func Measure(r *Result) Measurement {
	return Measurement{AspectRatio: r.AspectRatio, Size: r.SheetSizePhysical}
}

// Compare classifies value against baseline by the criterion.
func (c Criterion) Compare(baseline, value Measurement, margin float64) Verdict {
	if c == BySize {
		return CompareSize(baseline.Size, value.Size, margin)
	}
	return Compare(baseline.AspectRatio, value.AspectRatio, margin)
}
