package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ironsheep/sheet-calibration-mcp/internal/calibration"
	"github.com/ironsheep/sheet-calibration-mcp/internal/config"
	"github.com/ironsheep/sheet-calibration-mcp/internal/pipeline"
)

// Version information - set by ldflags during build
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "sheetcal - calibrate photographs of a reference sheet")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sheetcal calibrate [options] <image>")
	fmt.Fprintln(w, "  sheetcal batch [options] <dir>")
	fmt.Fprintln(w, "  sheetcal --version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'sheetcal <command> -h' for the options of a command.")
	fmt.Fprintln(w, "Options default to the SHEETCAL_* environment variables.")
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "sheetcal %s\n", Version)
		return 0
	case "--help", "-h", "help":
		usage(stdout)
		return 0
	case "calibrate":
		return runCalibrate(args[1:], stdout, stderr)
	case "batch":
		return runBatch(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

// pipelineFlags binds the settings shared by every command to cfg.
func pipelineFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.IntVar(&cfg.MaxDimension, "max-dimension", cfg.MaxDimension, "Resize so the governing side has this many pixels (0 keeps the size)")
	fs.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "Sheet binarization level 0-255")
	fs.IntVar(&cfg.BlurKernel, "blur-kernel", cfg.BlurKernel, "Odd Gaussian kernel size before circle detection")
	fs.Float64Var(&cfg.BlurSigma, "blur-sigma", cfg.BlurSigma, "Gaussian sigma")
	fs.Float64Var(&cfg.Hough.DP, "hough-dp", cfg.Hough.DP, "Inverse accumulator resolution")
	fs.Float64Var(&cfg.Hough.MinDist, "hough-min-dist", cfg.Hough.MinDist, "Minimum distance between markers in pixels")
	fs.Float64Var(&cfg.Hough.Param1, "hough-param1", cfg.Hough.Param1, "Canny high threshold")
	fs.Float64Var(&cfg.Hough.Param2, "hough-param2", cfg.Hough.Param2, "Accumulator vote threshold")
	fs.IntVar(&cfg.Hough.MinRadius, "min-radius", cfg.Hough.MinRadius, "Smallest marker radius in pixels")
	fs.IntVar(&cfg.Hough.MaxRadius, "max-radius", cfg.Hough.MaxRadius, "Largest marker radius in pixels")
	fs.Float64Var(&cfg.MarkerDiameterCM, "diameter", cfg.MarkerDiameterCM, "Known marker diameter in cm")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
}

// parse parses args and returns the single positional argument.
func parse(fs *flag.FlagSet, args []string, cfg *config.Config, what string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected one %s, got %d arguments", what, fs.NArg())
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return fs.Arg(0), nil
}

func runCalibrate(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	fs := flag.NewFlagSet("calibrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pipelineFlags(fs, cfg)

	path, err := parse(fs, args, cfg, "image")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := pipeline.New(pipeline.OptionsFromConfig(cfg, pipeline.ModeSingle), nil, cfg.Logger())
	o := p.RunFile(ctx, path)
	if d := o.Diagnostic(); d != nil {
		fmt.Fprintln(stderr, d)
		return 1
	}

	fmt.Fprintf(stdout, "%s\n", path)
	fmt.Fprintf(stdout, "Rotation: %.2f degrees\n", o.Deskew.Angle)
	if len(o.Markers) > 1 {
		fmt.Fprintf(stdout, "Markers: %d (using the first)\n", len(o.Markers))
	}
	if err := calibration.WriteReport(stdout, o.Calibration); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func runBatch(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pipelineFlags(fs, cfg)
	fs.Float64Var(&cfg.Margin, "margin", cfg.Margin, "Ratio tolerance against the baseline")
	fs.StringVar(&cfg.CompareBy, "compare-by", cfg.CompareBy, "Compare 'ratio' or physical 'size'")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Images processed in parallel")

	dir, err := parse(fs, args, cfg, "directory")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	criterion, err := calibration.ParseCriterion(cfg.CompareBy)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := cfg.Logger()
	b := &pipeline.Batch{
		Pipeline:  pipeline.New(pipeline.OptionsFromConfig(cfg, pipeline.ModeBatch), nil, logger),
		Margin:    cfg.Margin,
		Criterion: criterion,
		Workers:   cfg.Workers,
		Logger:    logger,
	}
	report, err := b.Run(ctx, dir)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	writeBatchReport(stdout, report)
	return 0
}

func writeBatchReport(w io.Writer, r *pipeline.BatchReport) {
	for _, name := range r.Skipped {
		fmt.Fprintf(w, "%s: skipped, unsupported extension\n", name)
	}
	for _, e := range r.Entries {
		switch {
		case e.Diagnostic != nil:
			fmt.Fprintf(w, "%s: %s (%s)\n", e.Name, e.Diagnostic.Kind, e.Diagnostic.Message)
		case e.Baseline:
			fmt.Fprintf(w, "%s: baseline, ratio %.4f, sheet %.2f x %.2f %s\n",
				e.Name, e.Measurement.AspectRatio, e.Measurement.Size.Width, e.Measurement.Size.Height, e.Calibration.Unit)
		default:
			fmt.Fprintf(w, "%s: %s, ratio %.4f, sheet %.2f x %.2f %s\n",
				e.Name, e.Verdict.Describe(), e.Measurement.AspectRatio, e.Measurement.Size.Width, e.Measurement.Size.Height, e.Calibration.Unit)
		}
	}
	if r.Stopped {
		fmt.Fprintf(w, "stopped: %s\n", r.StopReason)
		return
	}
	s := r.Summary
	fmt.Fprintf(w, "%d calibrated, ratio mean %.4f, std dev %.4f, range %.4f-%.4f\n", s.Count, s.Mean, s.StdDev, s.Min, s.Max)
}
