// Package weighting computes the effective value an observation
// contributes to its group: the raw value multiplied by the per-observation
// weight and by a configured per-category weight.
package weighting

import (
	"context"
	"fmt"
)

// defaultCategoryWeight applies to categories without a configured weight.
const defaultCategoryWeight = 1.0

// Input abstracts the observation fields needed for weighting.
type Input struct {
	Group    string
	Category string
	Value    float64
	Weight   float64 // per-observation weight; 1 when unweighted
}

// Result contains the effective value to fold into the group accumulator.
type Result struct {
	Group     string
	Category  string
	Effective float64
}

// Weigher computes the effective value for an observation.
type Weigher interface {
	// Weigh computes the effective value, honoring ctx for cancellation.
	Weigh(ctx context.Context, in Input) (Result, error)
}

// Option applies a configuration option to the InMemoryWeigher.
type Option func(*InMemoryWeigher)

// WithCategoryWeightsFromConfig sets category weights from a configuration
// map. Non-positive configured weights are ignored.
func WithCategoryWeightsFromConfig(weights map[string]float64, defaultWeight float64) Option {
	return func(w *InMemoryWeigher) {
		w.categoryWeights = make(map[string]float64, len(weights))
		for category, weight := range weights {
			if weight > 0 {
				w.categoryWeights[category] = weight
			}
		}
		if defaultWeight > 0 {
			w.defaultWeight = defaultWeight
		}
	}
}

// InMemoryWeigher implements Weigher from a static category-weight map.
type InMemoryWeigher struct {
	categoryWeights map[string]float64
	defaultWeight   float64
}

// NewInMemoryWeigher creates a weigher with configuration options.
func NewInMemoryWeigher(opts ...Option) *InMemoryWeigher {
	w := &InMemoryWeigher{
		categoryWeights: make(map[string]float64),
		defaultWeight:   defaultCategoryWeight,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Weigh computes the effective value for the given input. NaN and negative
// effective values are passed through unchanged; the index computation
// excludes them downstream (skip semantics).
func (w *InMemoryWeigher) Weigh(ctx context.Context, in Input) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("weighting cancelled: %w", ctx.Err())
	default:
	}

	categoryWeight, ok := w.categoryWeights[in.Category]
	if !ok {
		categoryWeight = w.defaultWeight
	}

	return Result{
		Group:     in.Group,
		Category:  in.Category,
		Effective: in.Value * in.Weight * categoryWeight,
	}, nil
}

// SetCategoryWeight allows customization of a single category weight.
func (w *InMemoryWeigher) SetCategoryWeight(category string, weight float64) {
	w.categoryWeights[category] = weight
}
