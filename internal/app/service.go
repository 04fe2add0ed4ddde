// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sort"
	"sync"

	obsqueue "github.com/diva-metrics/diva/internal/adapters/mq/queue"
	workerpool "github.com/diva-metrics/diva/internal/adapters/mq/worker"
	"github.com/diva-metrics/diva/internal/adapters/repository"
	"github.com/diva-metrics/diva/internal/domain/dedupe"
	"github.com/diva-metrics/diva/internal/domain/model"
	"github.com/diva-metrics/diva/internal/domain/types"
	"github.com/diva-metrics/diva/internal/domain/weighting"
	"github.com/diva-metrics/diva/pkg/diversity"
	"github.com/diva-metrics/diva/pkg/logger"
	"github.com/diva-metrics/diva/pkg/metrics"
)

// categoryTotal is one accumulated (category, total) pair fed to the
// index computation when a group is re-evaluated.
type categoryTotal struct {
	category string
	total    float64
}

// indexEvaluator adapts a diversity.Computer to the repository.Evaluator
// interface: it recomputes a single group's indices from its category
// accumulators.
type indexEvaluator struct {
	computer  *diversity.Computer[categoryTotal, string]
	rankIndex diversity.Index
}

func newIndexEvaluator(rankIndex diversity.Index, opts ...diversity.Option) *indexEvaluator {
	return &indexEvaluator{
		computer: diversity.NewComputer(
			func(categoryTotal) string { return "" },
			func(ct categoryTotal) (float64, error) { return ct.total, nil },
			opts...,
		),
		rankIndex: rankIndex,
	}
}

// Evaluate computes the configured indices over one group's category
// totals. Categories are sorted by name so the proportion vector is
// deterministic regardless of map iteration order.
func (e *indexEvaluator) Evaluate(ctx context.Context, totals map[string]float64) (repository.Evaluation, error) {
	rows := make([]categoryTotal, 0, len(totals))
	for category, total := range totals {
		rows = append(rows, categoryTotal{category: category, total: total})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].category < rows[j].category })

	results, err := e.computer.Compute(ctx, rows)
	if err != nil {
		return repository.Evaluation{}, err
	}

	res := results[0]
	return repository.Evaluation{
		Values:     res.Values,
		Total:      res.Total,
		Categories: res.Categories,
		RankValue:  res.Values[e.rankIndex],
	}, nil
}

// storeApplier adapts the repository.Store write path to the narrower
// worker.Applier interface.
type storeApplier struct {
	store repository.Store
}

func (a *storeApplier) Apply(ctx context.Context, group, category string, effective float64) error {
	_, err := a.store.Apply(ctx, group, category, effective)
	return err
}

// Service implements the API dependencies for the diversity index system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   obsqueue.Queue
	weigher weighting.Weigher
	pool    *workerpool.Pool

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	maxGroupsLimit  int
	categoryWeights map[string]float64
	defaultWeight   float64
	indices         []diversity.Index
	shannonBase     float64
	normalize       bool
	diagnostics     bool
	rankIndex       diversity.Index

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the observation queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxGroupsLimit caps how many groups a single listing may return.
func WithMaxGroupsLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxGroupsLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithCategoryWeights sets the per-category weights applied during
// observation processing.
func WithCategoryWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.categoryWeights = weights
	}
}

// WithDefaultCategoryWeight sets the weight for unknown categories.
func WithDefaultCategoryWeight(weight float64) Option {
	return func(s *Service) {
		if weight > 0 {
			s.defaultWeight = weight
		}
	}
}

// WithIndices sets which indices are computed per group.
func WithIndices(indices []diversity.Index) Option {
	return func(s *Service) {
		if len(indices) > 0 {
			s.indices = indices
		}
	}
}

// WithShannonBase sets the entropy logarithm base. Zero keeps the
// natural log.
func WithShannonBase(base float64) Option {
	return func(s *Service) {
		s.shannonBase = base
	}
}

// WithNormalizedShannon toggles entropy normalization onto [0, 1].
func WithNormalizedShannon(normalize bool) Option {
	return func(s *Service) {
		s.normalize = normalize
	}
}

// WithDiagnostics toggles group totals and category counts in results.
func WithDiagnostics(keep bool) Option {
	return func(s *Service) {
		s.diagnostics = keep
	}
}

// WithRankIndex selects the index that orders the group ranking.
func WithRankIndex(index diversity.Index) Option {
	return func(s *Service) {
		if index != "" {
			s.rankIndex = index
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       100000,
		dedupeSize:      50000,
		maxGroupsLimit:  100,
		categoryWeights: map[string]float64{},
		defaultWeight:   1.0,
		indices:         diversity.Indices(),
		rankIndex:       diversity.Shannon,
		diagnostics:     true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting diversity index service...")

	computeOpts := []diversity.Option{diversity.WithIndices(s.indices...)}
	if s.shannonBase > 0 {
		computeOpts = append(computeOpts, diversity.WithBase(s.shannonBase))
	}
	if s.normalize {
		computeOpts = append(computeOpts, diversity.WithNormalizedShannon())
	}
	if s.diagnostics {
		computeOpts = append(computeOpts, diversity.WithDiagnostics())
	}

	s.store = repository.NewGroupStore(newIndexEvaluator(s.rankIndex, computeOpts...))
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = obsqueue.NewInMemoryQueue(
		obsqueue.WithCapacity(s.queueSize),
		obsqueue.WithBufferSize(s.queueSize),
	)
	s.weigher = weighting.NewInMemoryWeigher(
		weighting.WithCategoryWeightsFromConfig(s.categoryWeights, s.defaultWeight),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.weigher, &storeApplier{store: s.store})
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "diversity index service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("rankIndex", string(s.rankIndex)),
	)

	return nil
}

// Stop gracefully shuts down the service, draining the queue first.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping diversity index service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if s.store != nil {
		s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "diversity index service stopped")
}

// SeenAndRecord atomically checks if an observation id was seen and
// records it if not. Returns true if the id was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordObservationDuplicate()
	}
	return seen
}

// Unrecord removes an observation id from the seen set, allowing a
// retry after a failed enqueue.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits an observation for asynchronous processing. Returns
// false when the queue is full.
func (s *Service) Enqueue(ctx context.Context, o model.Observation) bool {
	s.logger.Debug(ctx, "enqueueing observation",
		logger.String("observationID", o.ObservationID),
		logger.String("group", o.Group),
		logger.String("category", o.Category),
		logger.Float64("value", o.Value),
	)
	return s.queue.Enqueue(ctx, o)
}

// TopN returns the n best-ranked groups.
func (s *Service) TopN(ctx context.Context, n int) ([]types.GroupEntry, error) {
	entries, err := s.store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	out := make([]types.GroupEntry, len(entries))
	for i, entry := range entries {
		out[i] = s.toGroupEntry(entry)
	}
	return out, nil
}

// Group returns the ranked entry for a single group.
func (s *Service) Group(ctx context.Context, group string) (types.GroupEntry, error) {
	entry, err := s.store.Rank(ctx, group)
	if err != nil {
		return types.GroupEntry{}, err
	}
	return s.toGroupEntry(entry), nil
}

// MaxGroupsLimit returns the cap on a single group listing.
func (s *Service) MaxGroupsLimit() int {
	return s.maxGroupsLimit
}

// toGroupEntry converts a store entry to the API representation,
// attaching diagnostics only when configured.
func (s *Service) toGroupEntry(entry repository.Entry) types.GroupEntry {
	out := types.GroupEntry{
		Rank:    entry.Rank,
		Group:   entry.Group,
		Indices: entry.Values,
	}
	if s.diagnostics {
		total := entry.Total
		categories := entry.Categories
		out.Total = &total
		out.Categories = &categories
	}
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"rankIndex":   string(s.rankIndex),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		totalGroups := s.store.Count(ctx)
		rankedGroups := s.store.RankedCount(ctx)

		stats["queueLength"] = queueLen
		stats["totalGroups"] = totalGroups
		stats["rankedGroups"] = rankedGroups
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalGroups(totalGroups)
		metrics.UpdateRankedGroups(rankedGroups)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
