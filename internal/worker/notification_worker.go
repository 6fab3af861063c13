package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/service"
)

const defaultQueueSize = 256

// NotificationWorker delivers issue events off the request path.
type NotificationWorker struct {
	queue  chan events.Event
	handle events.EventHandler
	logger *zap.Logger
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewNotificationWorker builds a worker that feeds queued events to handle.
func NewNotificationWorker(handle events.EventHandler, queueSize int, logger *zap.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &NotificationWorker{
		queue:  make(chan events.Event, queueSize),
		handle: handle,
		logger: logger,
	}
}

// StartNotificationWorker subscribes a worker for notificationService to the
// issue events on dispatcher and starts it.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, notificationService *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	if notificationService == nil || dispatcher == nil {
		return nil
	}
	w := NewNotificationWorker(notificationService.Handle, defaultQueueSize, logger)
	for _, eventType := range service.IssueEventTypes {
		dispatcher.Subscribe(eventType, w.Enqueue)
	}
	w.Start(ctx)
	return w
}

// Enqueue queues event for delivery. When the queue is full the event is
// dropped and logged rather than blocking the caller.
func (w *NotificationWorker) Enqueue(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil
	}
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("issue_id", event.IssueID))
	}
	return nil
}

// Start launches the delivery goroutine.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for event := range w.queue {
			if err := w.handle(ctx, event); err != nil {
				w.logger.Warn("notification delivery failed",
					zap.String("event_type", string(event.Type)),
					zap.String("issue_id", event.IssueID),
					zap.Error(err))
			}
		}
	}()
}

// Stop stops accepting events and waits for queued ones to drain.
func (w *NotificationWorker) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
