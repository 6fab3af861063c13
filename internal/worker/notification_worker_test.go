package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/config"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/service"
)

type memoryPublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (m *memoryPublisher) Publish(_ context.Context, _ string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, payload)
	return nil
}

func TestNotificationWorker_DrainsOnStop(t *testing.T) {
	var mu sync.Mutex
	var handled []string
	w := NewNotificationWorker(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, e.IssueID)
		return nil
	}, 10, zap.NewNop())
	w.Start(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, w.Enqueue(context.Background(), events.Event{Type: events.EventIssueCreated, IssueID: id}))
	}
	w.Stop()

	assert.Equal(t, []string{"a", "b", "c"}, handled)
	assert.NoError(t, w.Enqueue(context.Background(), events.Event{IssueID: "late"}))
	w.Stop()
}

func TestNotificationWorker_DropsWhenFull(t *testing.T) {
	w := NewNotificationWorker(func(context.Context, events.Event) error { return nil }, 1, zap.NewNop())

	require.NoError(t, w.Enqueue(context.Background(), events.Event{IssueID: "kept"}))
	require.NoError(t, w.Enqueue(context.Background(), events.Event{IssueID: "dropped"}))
	assert.Len(t, w.queue, 1)

	w.Start(context.Background())
	w.Stop()
}

func TestNotificationWorker_HandlerErrorsDoNotStopDelivery(t *testing.T) {
	calls := 0
	w := NewNotificationWorker(func(context.Context, events.Event) error {
		calls++
		return errors.New("publish failed")
	}, 4, zap.NewNop())
	w.Start(context.Background())
	_ = w.Enqueue(context.Background(), events.Event{IssueID: "1"})
	_ = w.Enqueue(context.Background(), events.Event{IssueID: "2"})
	w.Stop()

	assert.Equal(t, 2, calls)
}

func TestStartNotificationWorker_RelaysDispatchedEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	pub := &memoryPublisher{}
	notifications := service.NewNotificationService(pub, zap.NewNop(), config.NotificationConfig{EventsChannel: "issues.events"})

	w := StartNotificationWorker(context.Background(), dispatcher, notifications, zap.NewNop())
	require.NotNil(t, w)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventIssueUpdated, IssueID: "x"}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventIssueDeleted, IssueID: "x"}))
	w.Stop()

	assert.Len(t, pub.messages, 2)
}

func TestStartNotificationWorker_NilService(t *testing.T) {
	assert.Nil(t, StartNotificationWorker(context.Background(), events.NewInMemoryDispatcher(), nil, zap.NewNop()))
}
