package main

import (
	"context"
	"flag"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/diva-metrics/diva/internal/seedtool"
)

// runTimeout bounds a whole simulation run.
const runTimeout = 10 * time.Minute

func main() {
	config := &seedtool.Config{}
	var help bool

	flag.StringVar(&config.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	flag.IntVar(&config.NumObservations, "observations", 10000, "Number of observations to generate and submit")
	flag.IntVar(&config.NumGroups, "groups", 50, "Number of groups to spread observations over")
	flag.IntVar(&config.TopN, "top", 50, "Number of top entries to fetch from the group listing")
	flag.IntVar(&config.Workers, "workers", runtime.NumCPU()*2, "Number of concurrent workers")
	flag.DurationVar(&config.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	flag.StringVar(&config.OutputFile, "output", "", "Output file for generated observations")
	flag.StringVar(&config.LogFile, "log", "", "Log file for run output")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&help, "help", false, "Show help message")
	flag.Parse()

	if help {
		seedtool.ShowHelp()
		return
	}

	if config.NumObservations <= 0 || config.NumGroups <= 0 || config.TopN <= 0 || config.Workers <= 0 {
		log.Println("observations, groups, top and workers must all be positive")
		os.Exit(1)
	}

	if err := seedtool.SetupLogging(config.LogFile); err != nil {
		log.Printf("failed to set up logging: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := seedtool.Run(ctx, config); err != nil {
		log.Printf("simulation run failed: %v", err)
		os.Exit(1)
	}
}
