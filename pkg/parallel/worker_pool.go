// Package parallel provides the worker pool that runs independent
// timestamp solves concurrently.
package parallel

import (
	"fmt"
	"math"
	"sync"

	"github.com/voltlab/gridflow/pkg/logging"
)

// Pool manages a fixed set of worker goroutines consuming submitted
// tasks. Tasks must be independent of each other; the solve loop submits
// one task per timestamp.
type Pool struct {
	workers   int
	taskQueue chan func()
	logger    logging.Logger
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu
}

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// NewPool creates a pool with the given number of workers. Counts below
// one run a single worker; counts above MaxWorkers are rejected. A nil
// logger disables panic reporting but panics are still contained.
func NewPool(workers int, logger logging.Logger) (*Pool, error) {
	if workers <= 0 {
		workers = 1
	}

	// Prevent overflow in buffer size calculation
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool := &Pool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2), // Buffer for 2x workers
		logger:    logger,
	}

	pool.start()
	return pool, nil
}

// start initializes the worker goroutines
func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker processes tasks from the queue
func (p *Pool) worker() {
	defer p.wg.Done()

	for task := range p.taskQueue {
		// Recover from panics in tasks to prevent worker crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("task panic recovered", logging.Any("panic", r))
				}
			}()
			task()
		}()
	}
}

// Submit adds a task to the pool. It returns false if the pool is
// closed, true if the task was accepted.
func (p *Pool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Check if pool is closed while holding read lock
	if p.closed {
		return false
	}

	// Safe to send because we hold the lock and pool is not closed
	p.taskQueue <- task
	return true
}

// Close shuts down the pool and waits for in-flight tasks to finish.
// Closing more than once is safe.
func (p *Pool) Close() {
	p.once.Do(func() {
		// Acquire write lock before closing
		p.mu.Lock()
		p.closed = true
		close(p.taskQueue)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// Wait drains the queue and blocks until every submitted task has run.
// The pool accepts no further tasks afterwards.
func (p *Pool) Wait() {
	p.Close()
}
