// Package worker defines worker contracts for asynchronous weighting and
// group updates.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/diva-metrics/diva/internal/domain/model"
	"github.com/diva-metrics/diva/internal/domain/weighting"
	"github.com/diva-metrics/diva/pkg/logger"
	"github.com/diva-metrics/diva/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Observation abstracts what workers read off the queue.
type Observation = model.Observation

// Applier folds an effective value into a group's category accumulator.
type Applier interface {
	Apply(ctx context.Context, group, category string, effective float64) error
}

// Weigher computes the effective value of an observation.
type Weigher interface {
	Weigh(ctx context.Context, in weighting.Input) (weighting.Result, error)
}

// Queue defines how workers receive observations.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Observation
}

// Worker processes observations and applies group updates using the
// provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker, letting in-flight work finish.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing observations.
type InMemoryWorker struct {
	queue   Queue
	weigher Weigher
	applier Applier
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, weigher Weigher, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		weigher:  weigher,
		applier:  applier,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	observations := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case o, ok := <-observations:
			if !ok {
				return
			}
			if err := w.process(ctx, o); err != nil {
				w.logger.Error(ctx, "error processing observation", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for it to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process weighs a single observation and folds it into its group.
func (w *InMemoryWorker) process(ctx context.Context, o Observation) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := w.weigher.Weigh(ctx, weighting.Input{
		Group:    o.Group,
		Category: o.Category,
		Value:    o.Value,
		Weight:   o.Weight,
	})
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "weighting_error")
		w.logger.Error(ctx, "weighting failed for observation",
			logger.String("observationID", o.ObservationID),
			logger.Error(err),
		)
		return fmt.Errorf("weigh observation %s: %w", o.ObservationID, err)
	}

	applyStart := time.Now()
	err = w.applier.Apply(ctx, res.Group, res.Category, res.Effective)
	metrics.RecordComputeLatency(float64(time.Since(applyStart).Milliseconds()))

	if err != nil {
		metrics.RecordComputeError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		w.logger.Error(ctx, "group update failed for observation",
			logger.String("observationID", o.ObservationID),
			logger.Error(err),
		)
		return fmt.Errorf("apply observation %s: %w", o.ObservationID, err)
	}

	metrics.RecordObservationProcessed()
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, weigher Weigher, applier Applier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			weigher,
			applier,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Stop stops all workers without draining the queue.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
