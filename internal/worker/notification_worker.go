package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/civicfix/civicfix-server/internal/events"
)

// Deliverer sends one event somewhere.
type Deliverer interface {
	Deliver(ctx context.Context, event events.Event) error
}

// NotificationWorker moves delivery off the request path. Events are queued by a
// dispatcher subscription and drained by a fixed pool of goroutines.
type NotificationWorker struct {
	deliverer Deliverer
	logger    *zap.Logger
	queue     chan events.Event
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewNotificationWorker builds a worker with a queue of the given size.
func NewNotificationWorker(deliverer Deliverer, logger *zap.Logger, queueSize int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &NotificationWorker{
		deliverer: deliverer,
		logger:    logger,
		queue:     make(chan events.Event, queueSize),
	}
}

// StartNotificationWorker subscribes w to every issue event and starts its goroutines.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, w *NotificationWorker, workers int) {
	if dispatcher == nil || w == nil {
		return
	}
	for _, eventType := range events.AllEventTypes() {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			w.Enqueue(event)
			return nil
		})
	}
	w.Start(ctx, workers)
}

// Enqueue queues event without blocking. It reports false when the event was dropped.
func (w *NotificationWorker) Enqueue(event events.Event) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- event:
		return true
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("issue_id", event.IssueID))
		return false
	}
}

// Start launches workers goroutines that drain the queue until Stop.
func (w *NotificationWorker) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for event := range w.queue {
				if err := w.deliverer.Deliver(ctx, event); err != nil {
					w.logger.Warn("notification delivery failed",
						zap.String("event_type", string(event.Type)),
						zap.Error(err))
				}
			}
		}()
	}
}

// Stop closes the queue and waits for queued events to be delivered.
func (w *NotificationWorker) Stop() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()
	})
	w.wg.Wait()
}
