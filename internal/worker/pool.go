package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vytor/realorai/internal/logger"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("worker queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker pool is stopped")
)

// Job is a unit of background work. Name is used for logging only.
type Job interface {
	Run(context.Context) error
	Name() string
}

// Pool runs jobs from a bounded queue on a fixed set of goroutines.
type Pool struct {
	name   string
	size   int
	jobs   chan Job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	log    *logger.Logger
}

// NewPool returns an idle pool. Jobs submitted before Start wait in the queue.
func NewPool(name string, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 2
	}
	if queueSize < 1 {
		queueSize = 64
	}
	return &Pool{
		name: name,
		size: workers,
		jobs: make(chan Job, queueSize),
		log:  logger.Default().WithPrefix(name + "-pool"),
	}
}

func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.log.Info("%d workers, queue capacity %d", p.size, cap(p.jobs))

	p.wg.Add(p.size)
	for n := 1; n <= p.size; n++ {
		go p.work(ctx, p.log.WithField("worker_id", n))
	}
}

func (p *Pool) work(ctx context.Context, log *logger.Logger) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.execute(ctx, log.WithField("job", job.Name()), job)
		}
	}
}

func (p *Pool) execute(ctx context.Context, log *logger.Logger, job Job) {
	began := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("%s panicked: %v", p.name, r)
		}
	}()

	err := job.Run(logger.NewContext(ctx, log))
	took := time.Since(began).Round(time.Millisecond)
	if err != nil {
		log.Error("failed after %v: %v", took, err)
		return
	}
	log.Info("done in %v", took)
}

// Stop rejects new jobs, lets workers drain what is queued and waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.log.Info("drained and stopped")
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrStopped
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		p.log.Warn("rejecting %s: %d jobs already waiting", job.Name(), len(p.jobs))
		return ErrQueueFull
	}
}

// QueueSize returns the current number of pending jobs.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}
