package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/config"
	"github.com/spec-kit/issue-tracker/internal/events"
)

// Publisher fans an encoded event out to a named channel. *persistence.Redis implements it.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// IssueEventTypes are the events NotificationService handles.
var IssueEventTypes = []events.EventType{
	events.EventIssueCreated,
	events.EventIssueUpdated,
	events.EventIssueDeleted,
}

// NotificationService logs issue events and relays them to a pub/sub channel.
type NotificationService struct {
	publisher Publisher
	logger    *zap.Logger
	cfg       config.NotificationConfig
}

// NewNotificationService creates the service. publisher may be nil.
func NewNotificationService(publisher Publisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// Handle logs event and relays it when a publisher is configured.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("project", event.Project),
		zap.String("issue_id", event.IssueID),
		zap.Any("payload", event.Payload))
	return n.relay(ctx, event)
}

func (n *NotificationService) relay(ctx context.Context, event events.Event) error {
	if n.publisher == nil || strings.TrimSpace(n.cfg.EventsChannel) == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if err := n.publisher.Publish(ctx, n.cfg.EventsChannel, payload); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	n.logger.Debug("event relayed",
		zap.String("channel", n.cfg.EventsChannel),
		zap.String("event_id", event.ID))
	return nil
}
