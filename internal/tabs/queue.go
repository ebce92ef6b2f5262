package tabs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sykell/metabear/internal/logger"
)

var (
	// ErrQueueFull is returned when a rerun cannot be enqueued.
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueStopped is returned when the queue is not running.
	ErrQueueStopped = errors.New("audit queue is not running")
)

// QueueConfig holds audit queue configuration
type QueueConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// DefaultQueueConfig returns default audit queue configuration
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		Workers:   4,
		QueueSize: 100,
		Timeout:   60 * time.Second,
	}
}

// Queue reruns tab audits in the background. A rerun drops the tab's cached
// audit and rebuilds it through RunAuditForTab so the fresh result is
// cached again.
type Queue struct {
	manager   *Manager
	queue     chan int
	workers   int
	timeout   time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool

	// done is called after each processed tab; tests use it to wait.
	done func(tabID int, resp Response)
}

// NewQueue creates a new audit queue
func NewQueue(manager *Manager, config *QueueConfig) *Queue {
	if config == nil {
		config = DefaultQueueConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		manager: manager,
		queue:   make(chan int, config.QueueSize),
		workers: config.Workers,
		timeout: config.Timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the worker goroutines
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.isRunning {
		return errors.New("audit queue is already running")
	}

	q.isRunning = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	logger.Log.Info("Audit queue started", zap.Int("workers", q.workers))
	return nil
}

// Stop stops the queue and waits for in-flight audits
func (q *Queue) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.isRunning {
		return nil
	}

	q.isRunning = false
	q.cancel()
	close(q.queue)
	q.wg.Wait()

	logger.Log.Info("Audit queue stopped")
	return nil
}

// Enqueue schedules a rerun of the tab's audit
func (q *Queue) Enqueue(tabID int) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.isRunning {
		return ErrQueueStopped
	}

	select {
	case q.queue <- tabID:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case tabID, ok := <-q.queue:
			if !ok {
				logger.Log.Debug("Audit worker shutting down", zap.Int("worker", id))
				return
			}
			q.process(tabID)
		case <-q.ctx.Done():
			logger.Log.Debug("Audit worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

func (q *Queue) process(tabID int) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	q.manager.Invalidate(tabID)
	resp := q.manager.RunAuditForTab(ctx, tabID)
	if !resp.Success && !resp.Restricted {
		logger.Log.Warn("Rerun failed", zap.Int("tab_id", tabID), zap.String("error", resp.Error))
	}

	if q.done != nil {
		q.done(tabID, resp)
	}
}
