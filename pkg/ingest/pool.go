package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/papercomputeco/physrag/pkg/document"
)

var defaultJobQueueSize uint = 64

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("ingest pool closed")

// Job is a unit of work for the pool: one extractor record.
type Job struct {
	// Index is the position of Record in the submitted batch.
	Index  int
	Record document.Record
}

// PoolConfig is the configuration options for the worker pool.
type PoolConfig struct {
	// NumWorkers is the number of workers. Defaults to runtime.NumCPU()*2.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// Handle processes one job. It is called concurrently from every worker.
	Handle func(ctx context.Context, job Job)

	Logger *slog.Logger
}

// Pool runs jobs on a fixed set of workers pulling from a bounded queue.
// Submit blocks while the queue is full, so producers are throttled by the
// workers rather than dropping documents.
type Pool struct {
	config *PoolConfig
	queue  chan Job
	wg     sync.WaitGroup
	ctx    context.Context
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool and starts its workers. Workers stop taking new
// jobs once ctx is done.
func NewPool(ctx context.Context, c *PoolConfig) (*Pool, error) {
	if c.Handle == nil {
		return nil, errors.New("pool handler is required")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = uint(runtime.NumCPU() * 2)
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		ctx:    ctx,
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Submit enqueues a job, blocking while the queue is full.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued jobs to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker loop that pulls jobs off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("ingest worker started", "worker_id", id)

	for job := range p.queue {
		if p.ctx.Err() != nil {
			// Drain without processing so Close can return.
			continue
		}
		p.config.Handle(p.ctx, job)
	}

	p.logger.Debug("ingest worker stopped", "worker_id", id)
}
