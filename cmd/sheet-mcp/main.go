package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/sheet-calibration-mcp/internal/config"
	"github.com/ironsheep/sheet-calibration-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("sheet-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("sheet-mcp - MCP server for reference sheet calibration")
			fmt.Println()
			fmt.Println("Usage: sheet-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  SHEETCAL_LOG_LEVEL=debug             Enable debug logging")
			fmt.Println("  SHEETCAL_LOG_FORMAT=json             Log as JSON")
			fmt.Println("  SHEETCAL_MARKER_DIAMETER_CM=0.55     Known marker diameter")
			fmt.Println("  SHEETCAL_MAX_DIMENSION=800           Resize bound before processing")
			fmt.Println("  SHEETCAL_THRESHOLD=128               Sheet binarization level")
			fmt.Println("  SHEETCAL_HOUGH_*                     Circle detector tolerances")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client.")
			return
		}
	}

	cfg := config.Load()
	logger := cfg.Logger()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	server.Version = Version
	logger.Debug("starting sheet MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.New(cfg, logger)
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
