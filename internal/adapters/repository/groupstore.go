package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diva-metrics/diva/pkg/metrics"
)

// rankScale converts index values to fixed-point integers so treap
// ordering is exact. Index values are small (entropy grows with the log
// of the category count) so nine decimal digits lose nothing that
// matters for ordering.
const rankScale = 1_000_000_000

// fixedPoint is a fixed-point representation of a ranking index value.
type fixedPoint int64

func toFixedPoint(v float64) fixedPoint {
	if math.IsNaN(v) {
		return 0
	}
	scaled := v * rankScale
	if scaled >= math.MaxInt64 {
		return math.MaxInt64
	}
	if scaled <= math.MinInt64 {
		return math.MinInt64
	}
	return fixedPoint(math.Round(scaled))
}

// node is a treap node ordered by (rank value desc, group asc) with a
// random heap priority.
type node struct {
	group    string
	rank     fixedPoint
	priority uint64
	size     int
	left     *node
	right    *node
}

func (n *node) subtreeSize() int {
	if n == nil {
		return 0
	}
	return n.size
}

func (n *node) update() {
	n.size = 1 + n.left.subtreeSize() + n.right.subtreeSize()
}

// less reports whether (rank, group) sorts before the node, i.e. ranks
// higher. Higher values first, ties broken by group name ascending.
func (n *node) less(rank fixedPoint, group string) bool {
	if rank != n.rank {
		return rank > n.rank
	}
	return group < n.group
}

// groupState is the mutable per-group state guarded by the store mutex.
type groupState struct {
	categories map[string]float64
	eval       Evaluation
	fp         fixedPoint
	ranked     bool
}

// Snapshot is an immutable, periodically rebuilt view used for cheap
// stats reads.
type Snapshot struct {
	RankByGroup map[string]int
	Top         []Entry
	BuiltAt     time.Time
}

// GroupStore implements Store with a randomized treap over the
// configured ranking index plus per-group category accumulators.
type GroupStore struct {
	mu        sync.RWMutex
	root      *node
	byGroup   map[string]*groupState
	evaluator Evaluator
	rng       *rand.Rand

	snapshot         atomic.Pointer[Snapshot]
	snapshotInterval time.Duration
	topCacheSize     int

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewGroupStore creates a store that re-evaluates groups with the given
// evaluator on every applied observation.
func NewGroupStore(evaluator Evaluator, opts ...Option) *GroupStore {
	s := &GroupStore{
		byGroup:          make(map[string]*groupState),
		evaluator:        evaluator,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		snapshotInterval: 5 * time.Second,
		topCacheSize:     100,
		stop:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.snapshot.Store(&Snapshot{RankByGroup: map[string]int{}, BuiltAt: time.Now()})

	if s.snapshotInterval > 0 {
		s.wg.Add(1)
		go s.snapshotLoop()
	}
	return s
}

// Apply folds an effective value into the group accumulator and re-ranks
// the group under the configured index.
func (s *GroupStore) Apply(ctx context.Context, group, category string, effective float64) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(time.Since(start).Seconds() * 1000)
	}()

	s.mu.Lock()

	gs, exists := s.byGroup[group]
	if !exists {
		gs = &groupState{categories: make(map[string]float64)}
		s.byGroup[group] = gs
	}
	gs.categories[category] += effective

	eval, err := s.evaluator.Evaluate(ctx, gs.categories)
	if err != nil {
		if !exists {
			delete(s.byGroup, group)
		} else {
			gs.categories[category] -= effective
		}
		s.mu.Unlock()
		metrics.RecordStoreError()
		metrics.RecordErrorByComponent("store", "evaluate")
		return Entry{}, fmt.Errorf("evaluate group %q: %w", group, err)
	}

	if gs.ranked {
		s.root = s.remove(s.root, gs.fp, group)
		gs.ranked = false
	}
	if eval.RankValue.Valid {
		gs.fp = toFixedPoint(eval.RankValue.Float64)
		s.root = s.insert(s.root, gs.fp, group)
		gs.ranked = true
	}
	gs.eval = eval

	total := len(s.byGroup)
	ranked := s.root.subtreeSize()
	s.mu.Unlock()

	metrics.RecordGroupUpdate()
	metrics.UpdateTotalGroups(total)
	metrics.UpdateRankedGroups(ranked)

	return entryFor(group, eval, 0), nil
}

// Rank returns the group's entry with its current 1-based, tie-aware
// rank.
func (s *GroupStore) Rank(_ context.Context, group string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(time.Since(start).Seconds() * 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	gs, exists := s.byGroup[group]
	if !exists {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, group)
	}
	if !gs.ranked {
		return entryFor(group, gs.eval, 0), nil
	}
	return entryFor(group, gs.eval, s.rankOf(gs.fp, group)), nil
}

// TopN returns the n best-ranked groups in rank order.
func (s *GroupStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(time.Since(start).Seconds() * 1000)
	}()

	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topN(n), nil
}

// Count returns the number of tracked groups, including groups whose
// ranking index is undefined.
func (s *GroupStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byGroup)
}

// RankedCount returns the number of groups with a defined ranking index.
func (s *GroupStore) RankedCount(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.subtreeSize()
}

// CurrentSnapshot returns the latest periodically built snapshot.
func (s *GroupStore) CurrentSnapshot() *Snapshot {
	return s.snapshot.Load()
}

// Close stops the snapshot loop and waits for it to finish.
func (s *GroupStore) Close() {
	close(s.stop)
	s.wg.Wait()
}

func entryFor(group string, eval Evaluation, rank int) Entry {
	return Entry{
		Rank:       rank,
		Group:      group,
		Values:     eval.Values,
		Total:      eval.Total,
		Categories: eval.Categories,
	}
}

// rankOf computes the tie-aware rank of (fp, group): one plus the number
// of groups with a strictly higher ranking value. Must be called with
// s.mu held.
func (s *GroupStore) rankOf(fp fixedPoint, group string) int {
	better := 0
	cur := s.root
	for cur != nil {
		if cur.less(fp, group) {
			// Everything right of cur, and cur itself, sorts after the
			// target; only a strictly higher rank value counts as better.
			cur = cur.left
			continue
		}
		if cur.rank > fp {
			better += cur.left.subtreeSize() + 1
		} else {
			better += s.countHigher(cur.left, fp)
		}
		cur = cur.right
	}
	return better + 1
}

// countHigher counts nodes in the subtree with rank strictly above fp.
// The subtree is ordered, so only one boundary path is walked.
func (s *GroupStore) countHigher(n *node, fp fixedPoint) int {
	count := 0
	for n != nil {
		if n.rank > fp {
			count += n.left.subtreeSize() + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// topN collects the first n groups in treap order and assigns tie-aware
// ranks. Must be called with s.mu held.
func (s *GroupStore) topN(n int) []Entry {
	entries := make([]Entry, 0, n)
	var walk func(*node) bool
	walk = func(cur *node) bool {
		if cur == nil {
			return true
		}
		if !walk(cur.left) {
			return false
		}
		if len(entries) >= n {
			return false
		}
		gs := s.byGroup[cur.group]
		entries = append(entries, entryFor(cur.group, gs.eval, 0))
		return walk(cur.right)
	}
	walk(s.root)

	for i := range entries {
		if i > 0 && s.byGroup[entries[i].Group].fp == s.byGroup[entries[i-1].Group].fp {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
	return entries
}

func (s *GroupStore) insert(cur *node, fp fixedPoint, group string) *node {
	if cur == nil {
		return &node{group: group, rank: fp, priority: s.rng.Uint64(), size: 1}
	}
	if cur.less(fp, group) {
		cur.left = s.insert(cur.left, fp, group)
		if cur.left.priority > cur.priority {
			cur = rotateRight(cur)
		}
	} else {
		cur.right = s.insert(cur.right, fp, group)
		if cur.right.priority > cur.priority {
			cur = rotateLeft(cur)
		}
	}
	cur.update()
	return cur
}

func (s *GroupStore) remove(cur *node, fp fixedPoint, group string) *node {
	if cur == nil {
		return nil
	}
	if cur.rank == fp && cur.group == group {
		cur = merge(cur.left, cur.right)
	} else if cur.less(fp, group) {
		cur.left = s.remove(cur.left, fp, group)
	} else {
		cur.right = s.remove(cur.right, fp, group)
	}
	if cur != nil {
		cur.update()
	}
	return cur
}

func rotateRight(cur *node) *node {
	left := cur.left
	cur.left = left.right
	left.right = cur
	cur.update()
	left.update()
	return left
}

func rotateLeft(cur *node) *node {
	right := cur.right
	cur.right = right.left
	right.left = cur
	cur.update()
	right.update()
	return right
}

func merge(left, right *node) *node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if left.priority > right.priority {
		left.right = merge(left.right, right)
		left.update()
		return left
	}
	right.left = merge(left, right.left)
	right.update()
	return right
}

func (s *GroupStore) snapshotLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.rebuildSnapshot()
		}
	}
}

func (s *GroupStore) rebuildSnapshot() {
	start := time.Now()

	s.mu.RLock()
	top := s.topN(s.topCacheSize)
	ranks := s.rankMap()
	s.mu.RUnlock()

	s.snapshot.Store(&Snapshot{
		RankByGroup: ranks,
		Top:         top,
		BuiltAt:     time.Now(),
	})

	metrics.RecordSnapshotRebuildDuration(time.Since(start).Seconds() * 1000)
	metrics.UpdateSnapshotLastUnix(float64(time.Now().Unix()))
}

// rankMap builds a full group-to-rank map with tie-aware ranks. Must be
// called with s.mu held.
func (s *GroupStore) rankMap() map[string]int {
	ranks := make(map[string]int, s.root.subtreeSize())
	pos, rank := 0, 0
	var prev fixedPoint
	var walk func(*node)
	walk = func(cur *node) {
		if cur == nil {
			return
		}
		walk(cur.left)
		pos++
		if pos == 1 || cur.rank != prev {
			rank = pos
		}
		prev = cur.rank
		ranks[cur.group] = rank
		walk(cur.right)
	}
	walk(s.root)
	return ranks
}
