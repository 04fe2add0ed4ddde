package seedtool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// outputFilePermission keeps generated data files owner-only.
const outputFilePermission = 0600

// Run executes the full simulation: generate observations, submit them,
// wait for the queue to drain, read back the computed indices, and check
// them against the seeded profiles.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	log.Printf("starting simulation run against %s", config.BaseURL)

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service not reachable: %w", err)
	}

	observations, plans, err := generateObservations(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if err := submitObservations(ctx, config, observations, stats); err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	log.Printf("waiting %s for the service to process the queue...", ProcessingDelay)
	waitForProcessing(ctx)

	entries, err := retrieveGroups(ctx, config, plans, stats)
	if err != nil {
		return fmt.Errorf("group retrieval failed: %w", err)
	}

	listing, err := getListing(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("listing retrieval failed: %w", err)
	}

	if err := runDiagnostics(config, plans, entries, listing); err != nil {
		return fmt.Errorf("diagnostics failed: %w", err)
	}

	explanations, err := retrieveExplanations(ctx, config)
	if err != nil {
		log.Printf("failed to fetch explanations: %v", err)
	} else {
		displayExplanations(explanations)
	}

	if err := saveObservationsToFile(config, observations); err != nil {
		return fmt.Errorf("failed to save observations: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	return nil
}

// saveObservationsToFile writes the generated observations as JSON so a
// run can be replayed or inspected later.
func saveObservationsToFile(config *Config, observations []Observation) error {
	outputFile := config.OutputFile
	if outputFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputFile = "observations_" + timestamp + ".json"
	}

	data, err := json.MarshalIndent(observations, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal observations: %w", err)
	}

	if err := os.WriteFile(outputFile, data, outputFilePermission); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Printf("saved %d observations to %s", len(observations), outputFile)
	return nil
}

// displayFinalStats prints the run summary.
func displayFinalStats(stats *Stats) {
	log.Println("simulation run completed")
	log.Printf("   duration:       %s", stats.Duration.Round(time.Millisecond))
	log.Printf("   generated:      %d", stats.ObservationsGenerated)
	log.Printf("   submitted:      %d", stats.ObservationsSubmitted)
	log.Printf("   successful:     %d", stats.ObservationsSuccessful)
	log.Printf("   duplicate:      %d", stats.ObservationsDuplicate)
	log.Printf("   failed:         %d", stats.ObservationsFailed)
	log.Printf("   groups read:    %d", stats.GroupsRetrieved)
	log.Printf("   listing reads:  %d", stats.ListingEntries)

	if stats.ObservationsSubmitted > 0 {
		successRate := float64(stats.ObservationsSuccessful) / float64(stats.ObservationsSubmitted) * PercentageMultiplier
		log.Printf("   success rate:   %.1f%%", successRate)
	}
	if stats.Duration > 0 {
		rate := float64(stats.ObservationsSubmitted) / stats.Duration.Seconds()
		log.Printf("   throughput:     %.0f observations/sec", rate)
	}
}
