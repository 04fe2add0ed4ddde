package seedtool

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/diva-metrics/diva/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "simdata_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`DIVA Simulation Data Tool
=========================

Seeds a running DIVA instance with observations spread over groups with
known concentration profiles, then checks the computed diversity indices
against what those profiles predict.

Usage:
  go run cmd/simdata/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -observations int
        Number of observations to generate and submit (default 10000)
  -groups int
        Number of groups to spread observations over (default 50)
  -top int
        Number of top entries to fetch from the group listing (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated observations (default: observations_TIMESTAMP.json)
  -log string
        Log file for run output (default: simdata_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed with default settings
  go run cmd/simdata/main.go

  # Seed a larger run against another host
  go run cmd/simdata/main.go -observations 50000 -groups 200 -url http://localhost:8080
`)
}
