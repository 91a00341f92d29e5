// Package config handles calibration configuration.
//
// Every tunable of the pipeline lives here so callers never depend on
// hard-coded constants. Values start from Default, may be overridden from
// SHEETCAL_* environment variables by Load, and are finally overridden by
// command-line flags or MCP tool arguments.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Comparison modes for batch runs.
const (
	CompareByRatio = "ratio"
	CompareBySize  = "size"
)

// Hough holds the circle detector tolerances.
type Hough struct {
	DP        float64 `json:"dp"`
	MinDist   float64 `json:"min_dist"`
	Param1    float64 `json:"param1"`
	Param2    float64 `json:"param2"`
	MinRadius int     `json:"min_radius"`
	MaxRadius int     `json:"max_radius"`
}

type Config struct {
	MaxDimension     int     // resize-before-processing bound, 0 disables
	Threshold        int     // binarization level, 0-255
	BlurKernel       int     // Gaussian kernel size, odd
	BlurSigma        float64 // Gaussian sigma
	Hough            Hough
	MarkerDiameterCM float64 // physical diameter of the reference dot
	Margin           float64 // batch comparison ratio margin, > 1
	CompareBy        string  // "ratio" or "size"
	Workers          int     // batch parallelism, 1 = sequential
	LogLevel         string
	LogFormat        string
}

// Default returns the values the calibration tools were tuned with.
func Default() *Config {
	return &Config{
		MaxDimension: 800,
		Threshold:    128,
		BlurKernel:   9,
		BlurSigma:    2,
		Hough: Hough{
			DP:        1,
			MinDist:   50,
			Param1:    255,
			Param2:    13,
			MinRadius: 1,
			MaxRadius: 50,
		},
		MarkerDiameterCM: 0.55,
		Margin:           1.2,
		CompareBy:        CompareByRatio,
		Workers:          1,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load returns Default overridden by SHEETCAL_* environment variables.
// Unparseable values are ignored and the default kept.
func Load() *Config {
	d := Default()
	return &Config{
		MaxDimension: getEnvInt("SHEETCAL_MAX_DIMENSION", d.MaxDimension),
		Threshold:    getEnvInt("SHEETCAL_THRESHOLD", d.Threshold),
		BlurKernel:   getEnvInt("SHEETCAL_BLUR_KERNEL", d.BlurKernel),
		BlurSigma:    getEnvFloat("SHEETCAL_BLUR_SIGMA", d.BlurSigma),
		Hough: Hough{
			DP:        getEnvFloat("SHEETCAL_HOUGH_DP", d.Hough.DP),
			MinDist:   getEnvFloat("SHEETCAL_HOUGH_MIN_DIST", d.Hough.MinDist),
			Param1:    getEnvFloat("SHEETCAL_HOUGH_PARAM1", d.Hough.Param1),
			Param2:    getEnvFloat("SHEETCAL_HOUGH_PARAM2", d.Hough.Param2),
			MinRadius: getEnvInt("SHEETCAL_HOUGH_MIN_RADIUS", d.Hough.MinRadius),
			MaxRadius: getEnvInt("SHEETCAL_HOUGH_MAX_RADIUS", d.Hough.MaxRadius),
		},
		MarkerDiameterCM: getEnvFloat("SHEETCAL_MARKER_DIAMETER_CM", d.MarkerDiameterCM),
		Margin:           getEnvFloat("SHEETCAL_MARGIN", d.Margin),
		CompareBy:        strings.ToLower(getEnv("SHEETCAL_COMPARE_BY", d.CompareBy)),
		Workers:          getEnvInt("SHEETCAL_WORKERS", d.Workers),
		LogLevel:         strings.ToLower(getEnv("SHEETCAL_LOG_LEVEL", d.LogLevel)),
		LogFormat:        strings.ToLower(getEnv("SHEETCAL_LOG_FORMAT", d.LogFormat)),
	}
}

// Validate reports the first setting that cannot drive the pipeline.
func (c *Config) Validate() error {
	switch {
	case c.MaxDimension < 0:
		return fmt.Errorf("max dimension must be >= 0, got %d", c.MaxDimension)
	case c.Threshold < 0 || c.Threshold > 255:
		return fmt.Errorf("threshold must be within 0-255, got %d", c.Threshold)
	case c.BlurKernel < 1 || c.BlurKernel%2 == 0:
		return fmt.Errorf("blur kernel must be a positive odd size, got %d", c.BlurKernel)
	case c.BlurSigma <= 0:
		return fmt.Errorf("blur sigma must be > 0, got %g", c.BlurSigma)
	case c.Hough.DP < 1:
		return fmt.Errorf("hough dp must be >= 1, got %g", c.Hough.DP)
	case c.Hough.MinDist <= 0:
		return fmt.Errorf("hough min distance must be > 0, got %g", c.Hough.MinDist)
	case c.Hough.Param1 <= 0 || c.Hough.Param2 <= 0:
		return fmt.Errorf("hough thresholds must be > 0, got %g/%g", c.Hough.Param1, c.Hough.Param2)
	case c.Hough.MinRadius < 1 || c.Hough.MaxRadius < c.Hough.MinRadius:
		return fmt.Errorf("hough radius bounds invalid: [%d,%d]", c.Hough.MinRadius, c.Hough.MaxRadius)
	case c.MarkerDiameterCM <= 0:
		return fmt.Errorf("marker diameter must be > 0, got %g", c.MarkerDiameterCM)
	case c.Margin < 1:
		return fmt.Errorf("margin must be >= 1, got %g", c.Margin)
	case c.CompareBy != CompareByRatio && c.CompareBy != CompareBySize:
		return fmt.Errorf("compare mode must be %q or %q, got %q", CompareByRatio, CompareBySize, c.CompareBy)
	case c.Workers < 1:
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	return nil
}

// Logger builds the process logger. Output goes to stderr because stdout
// carries the MCP protocol.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
