package seedtool

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/diva-metrics/diva/pkg/logger"
	"github.com/google/uuid"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	jitterRange        = 0.2
	baseValue          = 30.0
)

// categories is the fixed pool each group draws from.
var categories = []string{
	"exercise", "reading", "cooking", "music", "gaming", "chores",
}

// profile describes how a group's mass spreads over the categories.
// The mass vector drives the expected index ordering: uniform groups
// should come out with the highest entropy, dominant groups the lowest.
// A non-nil weight vector is submitted as explicit per-observation
// weights, so the weighted profile has uniform raw values but skewed
// effective values.
type profile struct {
	name    string
	mass    []float64
	weights []float64
}

var profiles = []profile{
	{name: "uniform", mass: []float64{1, 1, 1, 1, 1, 1}},
	{name: "skewed", mass: []float64{8, 4, 2, 1, 0.5, 0.25}},
	{name: "sparse", mass: []float64{1, 1, 0, 0, 0, 0}},
	{name: "dominant", mass: []float64{30, 1, 1, 1, 1, 1}},
	{name: "weighted", mass: []float64{1, 1, 1, 1, 1, 1}, weights: []float64{8, 4, 2, 1, 0.5, 0.25}},
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// GroupPlan records which profile a generated group follows, so the
// diagnostics step can check the service output against expectations.
type GroupPlan struct {
	Group   string
	Profile string
}

// generateObservations spreads the configured number of observations
// over groups with rotating concentration profiles.
func generateObservations(ctx context.Context, config *Config, stats *Stats) ([]Observation, []GroupPlan, error) {
	logger.Get().Info(ctx, "generating observations",
		logger.Int("numObservations", config.NumObservations),
		logger.Int("numGroups", config.NumGroups))

	plans := make([]GroupPlan, config.NumGroups)
	for i := range plans {
		plans[i] = GroupPlan{
			Group:   "group-" + uuid.New().String()[:8],
			Profile: profiles[i%len(profiles)].name,
		}
	}

	observations := make([]Observation, 0, config.NumObservations)
	now := time.Now().UTC().Format(time.RFC3339)

	for i := 0; i < config.NumObservations; i++ {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		groupIdx := i % config.NumGroups
		prof := profiles[groupIdx%len(profiles)]
		categoryIdx := (i / config.NumGroups) % len(categories)

		mass := prof.mass[categoryIdx]
		if mass == 0 {
			// This profile leaves the category empty; move the mass to
			// the first category instead of dropping the observation.
			categoryIdx = 0
			mass = prof.mass[0]
		}

		jitter := 1 + (getRandomFloat()-0.5)*jitterRange
		o := Observation{
			ObservationID: uuid.New().String(),
			Group:         plans[groupIdx].Group,
			Category:      categories[categoryIdx],
			Value:         baseValue * mass * jitter,
			TS:            now,
		}
		if prof.weights != nil {
			o.Weight = prof.weights[categoryIdx]
		}
		observations = append(observations, o)
	}

	stats.ObservationsGenerated = len(observations)
	logger.Get().Info(ctx, "generated observations successfully", logger.Int("count", len(observations)))

	return observations, plans, nil
}
