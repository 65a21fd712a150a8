package consumers

import (
	"context"
	"discussion/domain"
	"discussion/pkg/events"
	"fmt"

	"go.uber.org/zap"
)

type NotificationStore interface {
	InsertNotification(ctx context.Context, notification domain.Notification) (domain.Notification, error)
	DeleteNotificationsByCommentID(ctx context.Context, commentID string) (int64, error)
}

type NotificationEventHandler struct {
	store  NotificationStore
	logger *zap.Logger
}

func NewNotificationEventHandler(store NotificationStore, logger *zap.Logger) *NotificationEventHandler {
	return &NotificationEventHandler{
		store:  store,
		logger: logger,
	}
}

func (h *NotificationEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	h.logger.Info("Notification event received",
		zap.String("event", event.Event),
		zap.String("version", event.Version),
		zap.String("traceId", event.TraceID),
	)

	switch event.Event {
	case events.NotificationRequestedEvent:
		return h.handleRequested(ctx, event)
	case events.NotificationPurgeEvent:
		return h.handlePurge(ctx, event)
	default:
		h.logger.Warn("Unknown notification event type", zap.String("event", event.Event))
		return nil
	}
}

func (h *NotificationEventHandler) handleRequested(ctx context.Context, event *events.Event) error {
	var payload events.NotificationRequestedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return err
	}

	if payload.UserID == "" {
		return fmt.Errorf("malformed payload - userId missing")
	}
	if payload.Type == "" {
		return fmt.Errorf("malformed payload - type missing")
	}

	stored, err := h.store.InsertNotification(ctx, domain.Notification{
		UserID:   payload.UserID,
		Type:     domain.NotificationType(payload.Type),
		Title:    payload.Title,
		Message:  payload.Message,
		Metadata: payload.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	h.logger.Info("Notification stored",
		zap.String("notificationId", stored.ID),
		zap.String("userId", stored.UserID),
		zap.String("type", string(stored.Type)),
		zap.String("traceId", event.TraceID),
	)
	return nil
}

func (h *NotificationEventHandler) handlePurge(ctx context.Context, event *events.Event) error {
	var payload events.NotificationPurgePayload
	if err := event.DecodePayload(&payload); err != nil {
		return err
	}

	if payload.CommentID == "" {
		return fmt.Errorf("malformed payload - commentId missing")
	}

	deleted, err := h.store.DeleteNotificationsByCommentID(ctx, payload.CommentID)
	if err != nil {
		return fmt.Errorf("failed to purge notifications: %w", err)
	}

	h.logger.Info("Notifications purged",
		zap.String("commentId", payload.CommentID),
		zap.Int64("deleted", deleted),
		zap.String("traceId", event.TraceID),
	)
	return nil
}
