// Package diversity computes diversity and inequality indices over grouped
// numeric data: Shannon entropy, Simpson diversity, and the Gini
// coefficient, derived from within-group proportions of a value column.
//
// Rows are partitioned by a caller-supplied group key, values (optionally
// multiplied by a per-row weight) are converted into proportions of the
// group total, and the requested indices are computed per group. The
// computation is pure: no state is retained between calls and a Computer is
// safe for concurrent use.
package diversity

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Index names a computable diversity index.
type Index string

// Supported indices.
const (
	Shannon Index = "shannon"
	Simpson Index = "simpson"
	Gini    Index = "gini"
)

// Indices returns all supported index names in canonical order.
func Indices() []Index {
	return []Index{Shannon, Simpson, Gini}
}

// valid reports whether the index name is one of the supported set.
func (i Index) valid() bool {
	switch i {
	case Shannon, Simpson, Gini:
		return true
	default:
		return false
	}
}

// Value is a computed index value that may be undefined for a group (for
// example when the group total is not positive). Valid=false is an explicit
// missing marker, distinct from a legitimate zero, and marshals to JSON
// null.
type Value struct {
	Float64 float64
	Valid   bool
}

// Defined wraps a concrete float into a defined Value.
func Defined(v float64) Value {
	return Value{Float64: v, Valid: true}
}

// Undefined is the explicit missing-value marker.
var Undefined = Value{}

// MarshalJSON encodes the value as a JSON number, or null when undefined.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	b, err := json.Marshal(v.Float64)
	if err != nil {
		return nil, fmt.Errorf("marshal index value: %w", err)
	}
	return b, nil
}

// UnmarshalJSON decodes a JSON number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("unmarshal index value: %w", err)
	}
	*v = Defined(f)
	return nil
}

// Result is the per-group output record. Values holds exactly the requested
// indices; an undefined entry means the index was not computable for this
// group (group total not positive). Total and Categories are populated only
// when diagnostics are requested.
type Result[K comparable] struct {
	Group  K
	Values map[Index]Value

	// Diagnostics: the group total T of effective values, and the number
	// of categories with strictly positive proportion (k).
	Total      float64
	Categories int
}

// settings holds the scalar knobs shared by all Computer instantiations.
type settings struct {
	indices     []Index
	base        float64
	normalize   bool
	diagnostics bool
}

// Option applies a configuration option to a Computer.
type Option func(*settings)

// WithIndices restricts the computation to the given indices. The default
// is all supported indices.
func WithIndices(indices ...Index) Option {
	return func(s *settings) {
		s.indices = indices
	}
}

// WithBase sets the Shannon logarithm base. The default is e (entropy in
// nats); base 2 yields bits. Bases <= 0 or == 1 are rejected by Compute.
func WithBase(base float64) Option {
	return func(s *settings) {
		s.base = base
	}
}

// WithNormalizedShannon rescales Shannon entropy by its maximum log(k),
// mapping it onto [0, 1]. Groups with a single nonzero category report
// exactly 0 by convention.
func WithNormalizedShannon() Option {
	return func(s *settings) {
		s.normalize = true
	}
}

// WithDiagnostics includes the group total and nonzero category count in
// every result.
func WithDiagnostics() Option {
	return func(s *settings) {
		s.diagnostics = true
	}
}

// Computer computes diversity indices over rows of type R grouped by keys
// of type K. Accessor functions bind the group key, value, and optional
// weight columns at the call site.
type Computer[R any, K comparable] struct {
	groupKey func(R) K
	value    func(R) (float64, error)
	weight   func(R) (float64, error) // nil when unweighted
	settings settings
}

// NewComputer builds an unweighted Computer from a group-key accessor and a
// value accessor.
func NewComputer[R any, K comparable](groupKey func(R) K, value func(R) (float64, error), opts ...Option) *Computer[R, K] {
	c := &Computer[R, K]{
		groupKey: groupKey,
		value:    value,
		settings: settings{
			indices: Indices(),
			base:    math.E,
		},
	}
	for _, opt := range opts {
		opt(&c.settings)
	}
	return c
}

// NewWeightedComputer builds a Computer whose effective values are
// value * weight per row.
func NewWeightedComputer[R any, K comparable](groupKey func(R) K, value, weight func(R) (float64, error), opts ...Option) *Computer[R, K] {
	c := NewComputer(groupKey, value, opts...)
	c.weight = weight
	return c
}

// Compute partitions rows by group key and computes the requested indices
// per group. Groups appear in first-seen order. Accessor failures and
// invalid arguments abort the whole call with no partial results; a group
// whose total is not positive yields undefined values for every requested
// index and does not abort the batch.
func (c *Computer[R, K]) Compute(ctx context.Context, rows []R) ([]Result[K], error) {
	if err := c.settings.validate(); err != nil {
		return nil, err
	}

	// Partition into per-group effective values, preserving first-seen
	// group order for deterministic output.
	order := make([]K, 0)
	grouped := make(map[K][]float64)
	for i, row := range rows {
		v, err := c.value(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s", ErrInvalidValue, i, err)
		}
		if c.weight != nil {
			w, werr := c.weight(row)
			if werr != nil {
				return nil, fmt.Errorf("%w: row %d: %s", ErrInvalidWeight, i, werr)
			}
			v *= w
		}
		key := c.groupKey(row)
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], v)
	}

	out := make([]Result[K], 0, len(order))
	for _, key := range order {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("compute cancelled: %w", ctx.Err())
		default:
		}
		out = append(out, c.computeGroup(key, grouped[key]))
	}
	return out, nil
}

// computeGroup reduces one group's effective values to a Result.
func (c *Computer[R, K]) computeGroup(key K, effective []float64) Result[K] {
	g := newGroup(effective)

	res := Result[K]{Group: key, Values: make(map[Index]Value, len(c.settings.indices))}
	for _, idx := range c.settings.indices {
		if g.total <= 0 {
			// Undefined, not zero and not an error.
			res.Values[idx] = Undefined
			continue
		}
		switch idx {
		case Shannon:
			res.Values[idx] = Defined(g.shannon(c.settings.base, c.settings.normalize))
		case Simpson:
			res.Values[idx] = Defined(g.simpson())
		case Gini:
			res.Values[idx] = Defined(g.gini())
		}
	}
	if c.settings.diagnostics {
		res.Total = g.total
		res.Categories = g.k
	}
	return res
}

// validate checks the requested indices and Shannon base.
func (s *settings) validate() error {
	if len(s.indices) == 0 {
		return ErrNoIndices
	}
	for _, idx := range s.indices {
		if !idx.valid() {
			return fmt.Errorf("%w: %q", ErrUnknownIndex, idx)
		}
	}
	if math.IsNaN(s.base) || s.base <= 0 || s.base == 1 {
		return fmt.Errorf("%w: %v", ErrInvalidBase, s.base)
	}
	return nil
}

// group holds one group's proportion state.
type group struct {
	total float64   // T: sum of positive finite effective values
	props []float64 // length n, zeros for rows with no defined proportion
	pos   []float64 // proportions > 0 only
	k     int       // count of categories with positive proportion
}

// newGroup derives proportions from effective values. Negative and NaN
// contributions are excluded from the total and carry a zero proportion
// (skip semantics); when no positive mass remains the group total is zero
// and every proportion stays undefined.
func newGroup(effective []float64) *group {
	positive := make([]float64, 0, len(effective))
	for _, v := range effective {
		if !math.IsNaN(v) && v > 0 {
			positive = append(positive, v)
		}
	}
	g := &group{props: make([]float64, len(effective))}
	if len(positive) == 0 {
		return g
	}
	g.total = floats.Sum(positive)

	g.pos = make([]float64, 0, len(positive))
	for i, v := range effective {
		if !math.IsNaN(v) && v > 0 {
			p := v / g.total
			g.props[i] = p
			g.pos = append(g.pos, p)
		}
	}
	g.k = len(g.pos)
	return g
}

// shannon returns -sum p*log_base(p) over positive proportions, or the
// normalized variant H/log_base(k) when normalize is set. A single-category
// group reports 0 in both modes.
func (g *group) shannon(base float64, normalize bool) float64 {
	h := stat.Entropy(g.pos) // nats
	if normalize {
		if g.k <= 1 {
			return 0
		}
		return h / math.Log(float64(g.k))
	}
	return h / math.Log(base)
}

// simpson returns 1 - sum p^2, the probability that two independent draws
// fall in different categories.
func (g *group) simpson() float64 {
	var sq float64
	for _, p := range g.pos {
		sq += p * p
	}
	return 1 - sq
}

// gini returns the discrete Gini coefficient over the full proportion
// vector, zeros included: sort ascending and apply
// sum_i (2i - n - 1) p_(i) / n.
func (g *group) gini() float64 {
	n := len(g.props)
	sorted := make([]float64, n)
	copy(sorted, g.props)
	sort.Float64s(sorted)

	var sum float64
	for i, p := range sorted {
		sum += float64(2*(i+1)-n-1) * p
	}
	return sum / float64(n)
}
