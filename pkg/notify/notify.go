// Package notify emits notification requests on behalf of the comment
// handlers. Delivery is someone else's job: a request is published to the
// broker and the worker persists it.
package notify

import (
	"context"
	"discussion/domain"
	"discussion/pkg/events"
	"fmt"

	"go.uber.org/zap"
)

const PreviewLength = 100

type Request struct {
	UserID   string                  `json:"userId"`
	Type     domain.NotificationType `json:"type"`
	Title    string                  `json:"title"`
	Message  string                  `json:"message"`
	Metadata map[string]any          `json:"metadata"`
}

type Dispatcher interface {
	Notify(ctx context.Context, req Request) error
	// Purge drops every notification that references commentID.
	Purge(ctx context.Context, commentID string) error
}

type EventDispatcher struct {
	publisher events.Publisher
	service   string
}

func NewEventDispatcher(publisher events.Publisher, service string) *EventDispatcher {
	return &EventDispatcher{
		publisher: publisher,
		service:   service,
	}
}

func (d *EventDispatcher) Notify(ctx context.Context, req Request) error {
	if req.UserID == "" {
		return fmt.Errorf("notification without recipient")
	}

	payload := events.NotificationRequestedPayload{
		UserID:   req.UserID,
		Type:     string(req.Type),
		Title:    req.Title,
		Message:  req.Message,
		Metadata: req.Metadata,
	}

	return d.publish(ctx, events.NotificationRequestedEvent, payload)
}

func (d *EventDispatcher) Purge(ctx context.Context, commentID string) error {
	return d.publish(ctx, events.NotificationPurgeEvent, events.NotificationPurgePayload{
		CommentID: commentID,
	})
}

func (d *EventDispatcher) publish(ctx context.Context, name string, payload any) error {
	headers := events.NewHeaders(d.service)
	event := events.NewEvent(name, events.EventVersionV1, payload, headers)

	if err := d.publisher.Publish(ctx, events.NotificationExchange, event, headers); err != nil {
		return fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return nil
}

// LogDispatcher only logs requests. It stands in when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Notify(_ context.Context, req Request) error {
	zap.L().Info("Notification requested",
		zap.String("userId", req.UserID),
		zap.String("type", string(req.Type)),
		zap.String("title", req.Title),
	)
	return nil
}

func (LogDispatcher) Purge(_ context.Context, commentID string) error {
	zap.L().Info("Notification purge requested", zap.String("commentId", commentID))
	return nil
}

// Preview truncates body to PreviewLength characters and marks the cut with
// an ellipsis.
func Preview(body string) string {
	runes := []rune(body)
	if len(runes) <= PreviewLength {
		return body
	}
	return string(runes[:PreviewLength]) + "..."
}
