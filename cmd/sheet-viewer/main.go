package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/sheet-calibration-mcp/internal/calibration"
	"github.com/ironsheep/sheet-calibration-mcp/internal/config"
	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
	"github.com/ironsheep/sheet-calibration-mcp/internal/pipeline"
	"github.com/ironsheep/sheet-calibration-mcp/internal/viewer"
)

// Version information - set by ldflags during build
var Version = "dev"

func main() {
	cfg := config.Load()
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Print version information")
	flag.Float64Var(&cfg.MarkerDiameterCM, "diameter", cfg.MarkerDiameterCM, "Known marker diameter in cm")
	flag.IntVar(&cfg.MaxDimension, "max-dimension", cfg.MaxDimension, "Resize so the governing side has this many pixels (0 keeps the size)")
	flag.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "Sheet binarization level 0-255")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] image\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Calibrates the image, then shows the sheet. Click a marker to")
		fmt.Fprintln(os.Stderr, "recalibrate with it; Escape closes the window.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("sheet-viewer %s\n", Version)
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := cfg.Logger()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	path := flag.Arg(0)
	p := pipeline.New(pipeline.OptionsFromConfig(cfg, pipeline.ModeSingle), nil, logger)
	o := p.RunFile(context.Background(), path)
	if d := o.Diagnostic(); d != nil {
		fmt.Fprintln(os.Stderr, d)
		os.Exit(1)
	}

	if err := calibration.WriteReport(os.Stdout, o.Calibration); err != nil {
		logger.Error("report failed", "error", err)
		os.Exit(1)
	}

	c, err := viewer.NewController(p, o, imaging.DefaultStyle(), os.Stdout)
	if err != nil {
		logger.Error("cannot show sheet", "error", err)
		os.Exit(1)
	}
	if err := viewer.Show(filepath.Base(path), c); err != nil {
		logger.Error("viewer failed", "error", err)
		os.Exit(1)
	}
}
