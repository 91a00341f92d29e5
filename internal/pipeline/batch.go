package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/ironsheep/sheet-calibration-mcp/internal/calibration"
	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
)

// Batch compares every image of a folder against the first calibrated one.
type Batch struct {
	Pipeline  *Pipeline
	Margin    float64
	Criterion calibration.Criterion

	// Workers is the number of images processed at once; below 2 runs
	// sequentially.
	Workers int

	Logger *slog.Logger
}

// Entry is the result for one image of a batch.
type Entry struct {
	Path        string                   `json:"path"`
	Name        string                   `json:"name"`
	State       State                    `json:"state"`
	Calibration *calibration.Result      `json:"calibration,omitempty"`
	Measurement *calibration.Measurement `json:"measurement,omitempty"`
	Baseline    bool                     `json:"baseline,omitempty"`
	Verdict     calibration.Verdict      `json:"verdict,omitempty"`
	Diagnostic  *Diagnostic              `json:"diagnostic,omitempty"`
}

// BatchReport is the folder-ordered result of a batch.
type BatchReport struct {
	Dir          string                   `json:"dir"`
	Criterion    calibration.Criterion    `json:"criterion"`
	Margin       float64                  `json:"margin"`
	Entries      []Entry                  `json:"entries"`
	Skipped      []string                 `json:"skipped"`
	BaselinePath string                   `json:"baseline_path,omitempty"`
	Baseline     *calibration.Measurement `json:"baseline,omitempty"`
	Summary      calibration.Summary      `json:"summary"`

	// Stopped is set when the batch ended early; StopReason says why.
	Stopped    bool   `json:"stopped,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// Run processes every supported image in dir.
//
// Images are run independently, in parallel when Workers > 1, and reduced
// in name order afterwards: the first calibrated image publishes the
// baseline once and later calibrated images get a Verdict. Failed images
// carry a Diagnostic and never stop the batch, except an ambiguous first
// image which stops it with ErrFirstImageAmbiguous. Cancelling ctx stops
// scheduling and marks the remaining images cancelled.
//
// The returned error is only for an unreadable folder.
func (b *Batch) Run(ctx context.Context, dir string) (*BatchReport, error) {
	listing, err := imaging.ListImages(dir)
	if err != nil {
		return nil, err
	}
	logger := b.Logger
	if logger == nil {
		logger = b.Pipeline.logger
	}
	margin := b.Margin
	if margin <= 0 {
		margin = calibration.DefaultMargin
	}
	criterion := b.Criterion
	if criterion == "" {
		criterion = calibration.ByRatio
	}

	report := &BatchReport{
		Dir:       dir,
		Criterion: criterion,
		Margin:    margin,
		Entries:   make([]Entry, 0, len(listing.Images)),
		Skipped:   listing.Skipped,
	}
	for _, name := range listing.Skipped {
		logger.Warn("skipping file with unsupported extension", "file", name)
	}
	if len(listing.Images) == 0 {
		return report, nil
	}

	outcomes := make([]*Outcome, len(listing.Images))

	// The first image decides whether a baseline can exist at all.
	outcomes[0] = b.Pipeline.RunFile(ctx, listing.Images[0])
	if outcomes[0].State == AmbiguousMarkers {
		report.Entries = append(report.Entries, entryFor(outcomes[0]))
		report.Stopped = true
		report.StopReason = fmt.Errorf("%w: %s", ErrFirstImageAmbiguous, filepath.Base(listing.Images[0])).Error()
		logger.Warn("batch stopped", "reason", report.StopReason)
		return report, nil
	}

	b.runRest(ctx, listing.Images, outcomes)

	var baseline calibration.Baseline
	ratios := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		e := entryFor(o)
		if o.Calibration != nil {
			m := calibration.Measure(o.Calibration)
			e.Measurement = &m
			ratios = append(ratios, m.AspectRatio)

			if baseline.Publish(o.Path, m) {
				e.Baseline = true
				report.BaselinePath = o.Path
				report.Baseline = &m
			} else {
				base, _, _ := baseline.Get()
				e.Verdict = criterion.Compare(base, m, margin)
			}
		}
		report.Entries = append(report.Entries, e)
	}
	report.Summary = calibration.Summarize(ratios)
	return report, nil
}

// runRest fills outcomes[1:], sequentially or on a worker pool.
func (b *Batch) runRest(ctx context.Context, paths []string, outcomes []*Outcome) {
	if b.Workers < 2 {
		for i := 1; i < len(paths); i++ {
			outcomes[i] = b.Pipeline.RunFile(ctx, paths[i])
		}
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = b.Pipeline.RunFile(ctx, paths[i])
			}
		}()
	}
	for i := 1; i < len(paths); i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

func entryFor(o *Outcome) Entry {
	return Entry{
		Path:        o.Path,
		Name:        filepath.Base(o.Path),
		State:       o.State,
		Calibration: o.Calibration,
		Diagnostic:  o.Diagnostic(),
	}
}
