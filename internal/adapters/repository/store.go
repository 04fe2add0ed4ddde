// Package repository defines the interface for storing grouped category
// accumulators and ranking groups by a configured diversity index.
package repository

import (
	"context"

	"github.com/diva-metrics/diva/pkg/diversity"
)

// Entry is a ranked view of a single group.
type Entry struct {
	// Rank is 1-based. Zero means the group's ranking index is undefined
	// and the group is not ranked.
	Rank       int
	Group      string
	Values     map[diversity.Index]diversity.Value
	Total      float64
	Categories int
}

// Evaluation is the result of recomputing a group's indices from its
// category accumulators.
type Evaluation struct {
	Values     map[diversity.Index]diversity.Value
	Total      float64
	Categories int

	// RankValue is the value of the configured ranking index. Groups
	// with an undefined RankValue are tracked but not ranked.
	RankValue diversity.Value
}

// Evaluator recomputes a group's diversity indices from its accumulated
// per-category totals.
type Evaluator interface {
	Evaluate(ctx context.Context, totals map[string]float64) (Evaluation, error)
}

// Store accumulates effective values per group and category and keeps
// groups ranked by the configured index.
type Store interface {
	// Apply folds an effective value into the group's category
	// accumulator, re-evaluates the group's indices and re-ranks it.
	// The returned entry carries the fresh evaluation without a rank.
	Apply(ctx context.Context, group, category string, effective float64) (Entry, error)

	// Rank returns the group's entry with its current 1-based rank.
	// Groups whose ranking index is undefined return with Rank 0.
	Rank(ctx context.Context, group string) (Entry, error)

	// TopN returns the n best-ranked groups in rank order.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of tracked groups.
	Count(ctx context.Context) int

	// RankedCount returns the number of groups with a defined ranking
	// index.
	RankedCount(ctx context.Context) int

	// Close stops background maintenance.
	Close()
}
