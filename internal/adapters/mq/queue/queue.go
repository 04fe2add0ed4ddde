// Package queue provides the in-memory bounded queue decoupling
// observation ingestion from index recomputation.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/diva-metrics/diva/internal/domain/model"
	"github.com/diva-metrics/diva/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 100000
	defaultBufferSize    = 100000
)

// Observation is the payload type flowing through the queue.
type Observation = model.Observation

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an observation to the queue.
	// Returns false if the queue is full and the observation was dropped.
	Enqueue(ctx context.Context, o Observation) bool

	// Dequeue returns a channel that receives observations as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Observation

	// Len returns the current number of queued observations.
	Len(ctx context.Context) int

	// Close shuts down the queue. After closing, no new observations can
	// be enqueued and the dequeue channel is closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	observations chan Observation
	capacity     int
	bufferSize   int
	mu           sync.RWMutex
	closed       bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(q)
	}

	q.observations = make(chan Observation, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds an observation to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, o Observation) bool {
	start := time.Now()
	defer func() {
		metrics.RecordQueueLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if len(q.observations) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.observations <- o:
		metrics.RecordQueueEnqueue()
		currentSize := len(q.observations)
		metrics.UpdateQueueSize(currentSize)
		metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives observations as they become
// available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Observation {
	out := make(chan Observation)
	go func() {
		defer close(out)
		for o := range q.observations {
			select {
			case out <- o:
				metrics.RecordQueueDequeue()
				currentSize := len(q.observations)
				metrics.UpdateQueueSize(currentSize)
				metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued observations.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.observations)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.observations)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
