package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/ironsheep/sheet-calibration-mcp/internal/calibration"
	"github.com/ironsheep/sheet-calibration-mcp/internal/config"
	"github.com/ironsheep/sheet-calibration-mcp/internal/deskew"
	"github.com/ironsheep/sheet-calibration-mcp/internal/detection"
	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
)

// Options are the per-run settings of a Pipeline.
type Options struct {
	MaxDimension   int
	Threshold      uint8
	Blur           detection.BlurParams
	Hough          detection.HoughParams
	MarkerDiameter float64
	Mode           Mode
}

// OptionsFromConfig converts a validated configuration.
func OptionsFromConfig(cfg *config.Config, mode Mode) Options {
	return Options{
		MaxDimension: cfg.MaxDimension,
		Threshold:    uint8(cfg.Threshold),
		Blur:         detection.BlurParams{KernelSize: cfg.BlurKernel, Sigma: cfg.BlurSigma},
		Hough: detection.HoughParams{
			DP:        cfg.Hough.DP,
			MinDist:   cfg.Hough.MinDist,
			Param1:    cfg.Hough.Param1,
			Param2:    cfg.Hough.Param2,
			MinRadius: cfg.Hough.MinRadius,
			MaxRadius: cfg.Hough.MaxRadius,
		},
		MarkerDiameter: cfg.MarkerDiameterCM,
		Mode:           mode,
	}
}

// Pipeline runs the calibration stages. It holds no per-run state and is
// safe for concurrent use.
type Pipeline struct {
	opts     Options
	detector *detection.MarkerDetector
	cache    *imaging.ImageCache
	logger   *slog.Logger
}

// New creates a pipeline. A nil cache decodes every file afresh; a nil
// logger discards output.
func New(opts Options, cache *imaging.ImageCache, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		opts:     opts,
		detector: detection.NewMarkerDetector(opts.Blur, opts.Hough),
		cache:    cache,
		logger:   logger,
	}
}

// Backend names the circle finder the pipeline uses.
func (p *Pipeline) Backend() string { return p.detector.Backend() }

// Outcome is everything a run produced, up to the state it stopped in.
type Outcome struct {
	Path  string
	State State
	Trace []State
	Err   error

	// Input is the raster after resize-before-processing.
	Input *imaging.Raster

	// Region is the sheet found in Input; Deskew rotated Input around it.
	Region *detection.Region
	Deskew *deskew.Result

	// Sheet is the sheet re-detected on the deskewed raster and SheetRaster
	// is the crop of it. Every later coordinate is relative to SheetRaster.
	Sheet       *detection.Region
	SheetRaster *imaging.Raster

	// Markers are in deterministic order; Primary indexes the one used for
	// Calibration, or is -1.
	Markers     []detection.Marker
	Primary     int
	Calibration *calibration.Result
}

// Diagnostic describes why the run failed, or returns nil on success.
func (o *Outcome) Diagnostic() *Diagnostic {
	if o.State.Success() && o.Err == nil {
		return nil
	}
	msg := "run did not complete"
	if o.Err != nil {
		msg = o.Err.Error()
	}
	return &Diagnostic{Kind: KindOf(o.Err), Path: o.Path, State: o.State, Message: msg}
}

// moveTo advances the machine. An illegal edge is a programming error and
// panics; run recovers it into an Internal diagnostic.
func (o *Outcome) moveTo(s State) {
	if !o.State.CanTransition(s) {
		panic(fmt.Sprintf("illegal transition %s -> %s", o.State, s))
	}
	o.State = s
	o.Trace = append(o.Trace, s)
}

func (o *Outcome) fail(s State, err error) *Outcome {
	o.moveTo(s)
	o.Err = err
	return o
}

// RunFile loads path and runs it. Load failures end in Start with the
// UnreadableImage kind.
func (p *Pipeline) RunFile(ctx context.Context, path string) *Outcome {
	if err := ctx.Err(); err != nil {
		o := &Outcome{Path: path, State: Start, Trace: []State{Start}, Primary: -1, Err: err}
		p.report(o)
		return o
	}

	var r *imaging.Raster
	var err error
	if p.cache != nil {
		r, err = p.cache.Load(path)
	} else {
		r, err = imaging.LoadRaster(path)
	}
	if err != nil {
		o := &Outcome{Path: path, State: Start, Trace: []State{Start}, Primary: -1, Err: err}
		p.report(o)
		return o
	}
	return p.run(ctx, path, r)
}

// Run processes an already decoded raster.
func (p *Pipeline) Run(ctx context.Context, r *imaging.Raster) *Outcome {
	return p.run(ctx, "", r)
}

func (p *Pipeline) run(ctx context.Context, path string, r *imaging.Raster) (o *Outcome) {
	o = &Outcome{Path: path, State: Start, Trace: []State{Start}, Primary: -1}
	log := p.logger.With("path", path)

	defer func() {
		if rec := recover(); rec != nil {
			o.Err = fmt.Errorf("%w: %v", ErrInternal, rec)
			log.Error("pipeline stage panicked", "state", o.State, "panic", rec, "stack", string(debug.Stack()))
		}
		p.report(o)
	}()

	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}

	o.Input = r.FitWithin(p.opts.MaxDimension)

	region, err := detection.DetectSheet(o.Input, p.opts.Threshold)
	if err != nil {
		return o.fail(NoRectangle, err)
	}
	o.Region = region
	o.moveTo(RectangleFound)
	log.Debug("sheet found", "state", o.State, "top_left", region.TopLeft, "size", region.Size, "backend", detection.ContourBackend())

	rotated, err := deskew.Deskew(o.Input, region)
	if err != nil {
		return o.fail(NoRectangle, err)
	}
	o.Deskew = rotated
	o.moveTo(Deskewed)
	log.Debug("sheet deskewed", "state", o.State, "angle", rotated.Angle)

	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}

	sheet, err := detection.DetectSheet(rotated.Raster, p.opts.Threshold)
	if err != nil {
		return o.fail(NoRectangleAfterRotation, err)
	}
	crop, err := rotated.Raster.Crop(sheet.Bounds())
	if err != nil {
		return o.fail(NoRectangleAfterRotation, fmt.Errorf("%w: %v", detection.ErrDegenerateGeometry, err))
	}
	o.Sheet = sheet
	o.SheetRaster = crop
	o.moveTo(RectangleReFound)

	markers, err := p.detector.FindMarkers(crop)
	if err != nil {
		return o.fail(NoMarkers, err)
	}
	if _, err := detection.PrimaryMarker(markers); err != nil {
		return o.fail(NoMarkers, err)
	}
	o.Markers = markers
	o.moveTo(MarkersFound)
	log.Debug("markers found", "state", o.State, "markers", len(markers), "backend", p.detector.Backend())

	if p.opts.Mode == ModeBatch && len(markers) > 1 {
		return o.fail(AmbiguousMarkers, fmt.Errorf("%w: %d markers", ErrAmbiguousMarkers, len(markers)))
	}

	res, err := p.calibrate(o, 0)
	if err != nil {
		return o.fail(NoMarkers, err)
	}
	o.Primary = 0
	o.Calibration = res
	o.moveTo(Calibrated)
	return o
}

// RecalibrateWith calibrates a finished run with the marker at index
// instead of the primary one.
func (p *Pipeline) RecalibrateWith(o *Outcome, index int) (*calibration.Result, error) {
	if o == nil || o.Sheet == nil {
		return nil, fmt.Errorf("%w: run has no sheet", detection.ErrNoRectangle)
	}
	if index < 0 || index >= len(o.Markers) {
		return nil, fmt.Errorf("marker index %d out of range [0,%d)", index, len(o.Markers))
	}
	return p.calibrate(o, index)
}

// calibrate measures with Markers[index]. Markers are in sheet
// coordinates while Sheet is in deskewed-raster coordinates, so the marker
// is moved by the sheet's top-left first and the offset comes out relative
// to the sheet corner.
func (p *Pipeline) calibrate(o *Outcome, index int) (*calibration.Result, error) {
	m := o.Markers[index]
	m.Center = m.Center.Add(o.Sheet.TopLeft)
	return calibration.Calibrate(m, *o.Sheet, p.opts.MarkerDiameter)
}

func (p *Pipeline) report(o *Outcome) {
	if d := o.Diagnostic(); d != nil {
		p.logger.Warn("calibration failed", "path", o.Path, "state", d.State, "terminal", d.State.Terminal(), "kind", d.Kind, "error", d.Message)
		return
	}
	p.logger.Info("calibrated",
		"path", o.Path,
		"scale", o.Calibration.ScaleFactor,
		"ratio", o.Calibration.AspectRatio,
		"markers", len(o.Markers))
}
