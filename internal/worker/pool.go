package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"account-service/internal/utils"
)

var (
	ErrQueueFull       = errors.New("worker queue is full")
	ErrPoolClosed      = errors.New("worker pool is closed")
	ErrShutdownTimeout = errors.New("worker pool shutdown timed out")
)

// Job is a unit of background work.
type Job struct {
	ID      string
	Task    func(ctx context.Context) error
	RetryOn func(error) bool // nil retries every error
	OnDone  func(error)
}

// WorkerPool runs jobs on a fixed number of goroutines with a bounded queue.
type WorkerPool struct {
	workers    int
	maxRetries int
	backoff    time.Duration

	jobQueue chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// closeMu guards sends on jobQueue against Shutdown closing it.
	closeMu sync.RWMutex
	closed  bool

	mu    sync.Mutex
	stats PoolStats
}

type PoolStats struct {
	TotalJobs     int64
	CompletedJobs int64
	FailedJobs    int64
	RejectedJobs  int64
	ActiveWorkers int
	QueuedJobs    int
}

func NewWorkerPool(workers, queueSize, maxRetries int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &WorkerPool{
		workers:    workers,
		maxRetries: maxRetries,
		backoff:    100 * time.Millisecond,
		jobQueue:   make(chan Job, queueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	utils.LogInfo("WorkerPool", "Created: workers=%d queue=%d retries=%d", workers, queueSize, maxRetries)
	return pool
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.mu.Lock()
	p.stats.ActiveWorkers = p.workers
	p.mu.Unlock()

	utils.LogSuccess("WorkerPool", "All %d workers started", p.workers)
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			utils.LogDebug("WorkerPool", "Worker #%d stopped", id)
			return

		case job, ok := <-p.jobQueue:
			if !ok {
				utils.LogDebug("WorkerPool", "Worker #%d: queue closed", id)
				return
			}
			p.executeJob(id, job)
		}
	}
}

func (p *WorkerPool) executeJob(workerID int, job Job) {
	startTime := time.Now()
	var err error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			utils.LogWarning("WorkerPool", "Worker #%d: retry #%d for job %s", workerID, attempt, job.ID)
			select {
			case <-time.After(p.backoff * time.Duration(attempt)):
			case <-p.ctx.Done():
				err = errors.Join(err, p.ctx.Err())
				p.finish(job, err, workerID, startTime)
				return
			}
		}

		err = job.Task(p.ctx)
		if err == nil {
			break
		}
		if job.RetryOn != nil && !job.RetryOn(err) {
			break
		}
	}

	p.finish(job, err, workerID, startTime)
}

func (p *WorkerPool) finish(job Job, err error, workerID int, startTime time.Time) {
	p.mu.Lock()
	if err == nil {
		p.stats.CompletedJobs++
	} else {
		p.stats.FailedJobs++
	}
	p.mu.Unlock()

	duration := time.Since(startTime)
	if err == nil {
		utils.LogDebug("WorkerPool", "Worker #%d: job %s done in %v", workerID, job.ID, duration)
	} else {
		utils.LogError("WorkerPool", fmt.Sprintf("Worker #%d: job %s failed after %v", workerID, job.ID, duration), err)
	}

	if job.OnDone != nil {
		job.OnDone(err)
	}
}

// Submit enqueues job without blocking. It returns ErrQueueFull when the
// queue has no free slot.
func (p *WorkerPool) Submit(job Job) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobQueue <- job:
		p.accepted()
		return nil
	default:
		p.mu.Lock()
		p.stats.RejectedJobs++
		p.mu.Unlock()
		utils.LogWarning("WorkerPool", "Queue full, job %s rejected", job.ID)
		return ErrQueueFull
	}
}

// SubmitBlocking waits for a free queue slot or for ctx to end.
func (p *WorkerPool) SubmitBlocking(ctx context.Context, job Job) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobQueue <- job:
		p.accepted()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

func (p *WorkerPool) accepted() {
	p.mu.Lock()
	p.stats.TotalJobs++
	p.mu.Unlock()
}

// Shutdown stops accepting jobs and drains the queue. Blocked SubmitBlocking
// callers finish first since workers keep draining until the queue is closed. Workers still busy when
// timeout elapses are cancelled through their job context.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobQueue)
	p.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.markStopped()
		utils.LogSuccess("WorkerPool", "All workers stopped")
		return nil

	case <-time.After(timeout):
		p.cancel()
		<-done
		p.markStopped()
		utils.LogWarning("WorkerPool", "Shutdown timeout exceeded, remaining jobs cancelled")
		return ErrShutdownTimeout
	}
}

func (p *WorkerPool) markStopped() {
	p.mu.Lock()
	p.stats.ActiveWorkers = 0
	p.mu.Unlock()
}

func (p *WorkerPool) GetStats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.stats
	stats.QueuedJobs = len(p.jobQueue)
	return stats
}
