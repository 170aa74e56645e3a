package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	customlog "github.com/open-teleop/joypad/pkg/log"
)

// ErrLoopStopped is returned by Submit once the loop has been stopped.
var ErrLoopStopped = errors.New("event loop is not running")

// Task is one unit of work. Tasks run one at a time in submission order.
type Task func()

// LoopMetrics tracks metrics for the event loop
type LoopMetrics struct {
	ProcessedCount    int64 `json:"processed_count"`
	PanicCount        int64 `json:"panic_count"`
	QueuedCount       int64 `json:"queued_count"`
	LastProcessedTime int64 `json:"last_processed_time"`
	ProcessingTimeAvg int64 `json:"processing_time_avg_us"` // in microseconds
	ProcessingTimeMax int64 `json:"processing_time_max_us"` // in microseconds
}

// Loop is a single-worker queue. Everything that touches a Session is
// submitted here so handlers never run concurrently.
type Loop struct {
	name      string
	logger    customlog.Logger
	queue     chan Task
	queueSize int
	running   bool
	done      chan struct{}
	stopCh    chan struct{}
	mu        sync.RWMutex

	metricsMu sync.Mutex
	metrics   LoopMetrics
}

// NewLoop creates a stopped loop with the given queue capacity.
func NewLoop(name string, queueSize int, logger customlog.Logger) *Loop {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Loop{
		name:      name,
		logger:    logger,
		queue:     make(chan Task, queueSize),
		queueSize: queueSize,
		done:      make(chan struct{}),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the worker
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	l.running = true
	l.logger.Infof("Starting %s loop (queue %d)", l.name, l.queueSize)

	go l.worker()
}

// Submit enqueues a task, blocking while the queue is full. It never drops
// work: a lost release would leave the vehicle moving.
func (l *Loop) Submit(ctx context.Context, task Task) error {
	l.mu.RLock()
	running := l.running
	l.mu.RUnlock()
	if !running {
		return ErrLoopStopped
	}

	select {
	case l.queue <- task:
		l.metricsMu.Lock()
		l.metrics.QueuedCount++
		l.metricsMu.Unlock()
		return nil
	case <-l.stopCh:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do submits a task and waits for it to finish.
func (l *Loop) Do(ctx context.Context, task Task) error {
	finished := make(chan struct{})
	if err := l.Submit(ctx, func() {
		defer close(finished)
		task()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains queued tasks and waits for the worker to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stopCh)
	l.mu.Unlock()

	l.logger.Infof("Stopping %s loop", l.name)
	<-l.done
	l.logMetrics()
}

func (l *Loop) worker() {
	defer close(l.done)

	for {
		select {
		case task := <-l.queue:
			l.run(task)
		case <-l.stopCh:
			// Run what was already accepted.
			for {
				select {
				case task := <-l.queue:
					l.run(task)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) run(task Task) {
	startTime := time.Now()
	panicked := l.safeRun(task)
	processingTime := time.Since(startTime).Microseconds()

	l.metricsMu.Lock()
	defer l.metricsMu.Unlock()

	l.metrics.ProcessedCount++
	l.metrics.LastProcessedTime = time.Now().UnixNano()
	if l.metrics.ProcessingTimeAvg == 0 {
		l.metrics.ProcessingTimeAvg = processingTime
	} else {
		// Simple moving average
		l.metrics.ProcessingTimeAvg = (l.metrics.ProcessingTimeAvg + processingTime) / 2
	}
	if processingTime > l.metrics.ProcessingTimeMax {
		l.metrics.ProcessingTimeMax = processingTime
	}
	if panicked {
		l.metrics.PanicCount++
	}
}

// safeRun keeps a faulty handler from killing the loop.
func (l *Loop) safeRun(task Task) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("%s loop task panicked: %v", l.name, r)
			panicked = true
		}
	}()
	task()
	return false
}

// GetMetrics returns a copy of the current metrics
func (l *Loop) GetMetrics() LoopMetrics {
	l.metricsMu.Lock()
	defer l.metricsMu.Unlock()
	return l.metrics
}

func (l *Loop) logMetrics() {
	m := l.GetMetrics()
	l.logger.Infof("%s loop metrics: processed=%d, panics=%d, avg_time=%dµs, max_time=%dµs",
		l.name, m.ProcessedCount, m.PanicCount, m.ProcessingTimeAvg, m.ProcessingTimeMax)
}

// GetName returns the loop name
func (l *Loop) GetName() string {
	return l.name
}

// GetQueueLength returns the number of tasks waiting
func (l *Loop) GetQueueLength() int {
	return len(l.queue)
}

// GetQueueCapacity returns the capacity of the queue
func (l *Loop) GetQueueCapacity() int {
	return l.queueSize
}
