// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment sources on top.
// - External errors must be wrapped via this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"

	"github.com/diva-metrics/diva/pkg/diversity"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory observation queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of processing workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxGroupsLimit caps GET /groups?limit.
	MaxGroupsLimit int `koanf:"max_groups_limit"`

	// Indices lists the diversity indices computed per group.
	Indices []string `koanf:"indices"`

	// ShannonBase sets the entropy logarithm base; 0 means natural log.
	ShannonBase float64 `koanf:"shannon_base"`

	// NormalizeShannon divides entropy by its maximum for the group's
	// category count.
	NormalizeShannon bool `koanf:"normalize_shannon"`

	// KeepDiagnostics includes group totals and category counts in
	// responses.
	KeepDiagnostics bool `koanf:"keep_diagnostics"`

	// RankIndex selects which index orders the group ranking.
	RankIndex string `koanf:"rank_index"`

	// CategoryWeights maps category names to their weights.
	CategoryWeights map[string]float64 `koanf:"category_weights"`

	// DefaultCategoryWeight is used for unknown categories.
	DefaultCategoryWeight float64 `koanf:"default_category_weight"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		QueueSize:             100_000,
		WorkerCount:           runtime.NumCPU() * 4,
		DedupeSize:            500_000,
		MaxGroupsLimit:        100,
		Indices:               []string{"shannon", "simpson", "gini"},
		ShannonBase:           0,
		NormalizeShannon:      false,
		KeepDiagnostics:       true,
		RankIndex:             "shannon",
		CategoryWeights:       map[string]float64{},
		DefaultCategoryWeight: 1.0,
	}
}

// Validate checks invariants that would otherwise surface as runtime
// failures deep inside the index computation.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if len(c.Indices) == 0 {
		return fmt.Errorf("%w: indices must not be empty", ErrInvalidConfig)
	}

	known := make(map[string]bool, len(diversity.Indices()))
	for _, idx := range diversity.Indices() {
		known[string(idx)] = true
	}
	for _, name := range c.Indices {
		if !known[name] {
			return fmt.Errorf("%w: unknown index %q", ErrInvalidConfig, name)
		}
	}

	if c.ShannonBase < 0 || c.ShannonBase == 1 {
		return fmt.Errorf("%w: shannon_base must be 0 (natural log) or a positive base other than 1", ErrInvalidConfig)
	}

	rankKnown := false
	for _, name := range c.Indices {
		if name == c.RankIndex {
			rankKnown = true
			break
		}
	}
	if !rankKnown {
		return fmt.Errorf("%w: rank_index %q is not among the configured indices", ErrInvalidConfig, c.RankIndex)
	}

	if c.DefaultCategoryWeight <= 0 {
		return fmt.Errorf("%w: default_category_weight must be positive", ErrInvalidConfig)
	}
	return nil
}

// IndexList converts the configured index names to typed indices.
func (c *Config) IndexList() []diversity.Index {
	out := make([]diversity.Index, 0, len(c.Indices))
	for _, name := range c.Indices {
		out = append(out, diversity.Index(name))
	}
	return out
}
