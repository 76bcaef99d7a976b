// Package worker runs batch jobs from a queue on a fixed pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okian/statscout/internal/adapters/mq/queue"
	"github.com/okian/statscout/pkg/logger"
	"github.com/okian/statscout/pkg/metrics"
)

// Default worker configuration constants.
const (
	DefaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
)

// Result is the outcome of one job.
type Result struct {
	Seq     int
	Output  string
	Err     error
	Elapsed time.Duration
}

// Processor runs one job. Failures are reported in the Result.
type Processor interface {
	Process(ctx context.Context, j queue.Job) Result
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs and reports their results.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	results   chan<- Result
	name      string

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker that sends results to results.
func NewInMemoryWorker(q Queue, p Processor, results chan<- Result, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		results:   results,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)

	return w
}

// Run starts the worker loop. A job already dequeued when Shutdown is
// called still runs; no further job is taken.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			r := w.process(ctx, j)
			// a finished job is reported even if ctx ended meanwhile
			select {
			case w.results <- r:
			default:
				select {
				case w.results <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) Result {
	start := time.Now()
	r := w.processor.Process(ctx, j)
	r.Seq = j.Seq
	r.Elapsed = time.Since(start)
	metrics.RecordWorkerProcessingLatency(float64(r.Elapsed.Milliseconds()))

	if r.Err != nil {
		w.logger.Debug(ctx, "job failed", logger.Int("seq", j.Seq), logger.Error(r.Err))
	}
	return r
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []Worker
	queue   Queue
	results chan Result
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. opts apply to every worker.
func NewPool(workerCount int, q Queue, p Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = DefaultWorkerCount
	}

	pool := &Pool{
		workers: make([]Worker, workerCount),
		queue:   q,
		results: make(chan Result, workerCount),
		logger:  logger.Nop(),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)))
		w := NewInMemoryWorker(q, p, pool.results, wopts...)
		pool.workers[i] = w
		if i == 0 {
			pool.logger = w.logger
		}
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers. Results is closed once every worker has stopped.
func (p *Pool) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))

	go func() {
		wg.Wait()
		metrics.UpdateWorkerActiveCount(0)
		close(p.results)
	}()
}

// Results streams job results in completion order.
func (p *Pool) Results() <-chan Result { return p.results }

// Collect starts the pool and gathers results until every worker stops.
// When stop is non-nil and reports true for a result, the pool is shut
// down and jobs not yet started stay queued. Results come back ordered by
// Seq and hold only the jobs that ran.
func (p *Pool) Collect(ctx context.Context, stop func(Result) bool) []Result {
	p.Start(ctx)

	var (
		out      []Result
		stopping bool
		stopped  = make(chan struct{})
	)
	for r := range p.Results() {
		out = append(out, r)
		if stopping || stop == nil || !stop(r) {
			continue
		}
		stopping = true
		// workers may be blocked on results, keep draining while they stop
		go func() {
			defer close(stopped)
			if err := p.Shutdown(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn(ctx, "pool shutdown failed", logger.Error(err))
			}
		}()
	}
	if stopping {
		<-stopped
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// closableQueue is a Queue the pool can close on shutdown.
type closableQueue interface {
	Close() error
	IsClosed() bool
}

// Shutdown closes the queue when it can be closed and stops every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	if cq, ok := p.queue.(closableQueue); ok && !cq.IsClosed() {
		if err := cq.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
