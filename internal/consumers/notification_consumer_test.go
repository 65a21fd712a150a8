package consumers

import (
	"context"
	"discussion/domain"
	"discussion/infra/memory"
	"discussion/pkg/events"
	"errors"
	"testing"

	"go.uber.org/zap"
)

// roundTrip mimics the broker: the payload arrives as decoded JSON.
func roundTrip(t *testing.T, event *events.Event) *events.Event {
	t.Helper()
	var generic map[string]any
	if err := event.DecodePayload(&generic); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	event.Payload = generic
	return event
}

func TestHandleEvent_StoresAndPurges(t *testing.T) {
	store := memory.NewRepository()
	handler := NewNotificationEventHandler(store, zap.NewNop())
	ctx := context.Background()

	requested := roundTrip(t, events.NewEvent(events.NotificationRequestedEvent, events.EventVersionV1, events.NotificationRequestedPayload{
		UserID:   "u1",
		Type:     string(domain.NotificationCommentReplyReceived),
		Title:    "New reply to your comment",
		Message:  "Jane replied to your comment: hi",
		Metadata: map[string]any{"commentId": "c1"},
	}, events.Headers{}))

	if err := handler.HandleEvent(ctx, requested); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := store.ListNotifications(ctx, "u1")
	if len(stored) != 1 || stored[0].Type != domain.NotificationCommentReplyReceived {
		t.Fatalf("unexpected stored notifications %+v", stored)
	}

	purge := roundTrip(t, events.NewEvent(events.NotificationPurgeEvent, events.EventVersionV1, events.NotificationPurgePayload{CommentID: "c1"}, events.Headers{}))
	if err := handler.HandleEvent(ctx, purge); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ = store.ListNotifications(ctx, "u1")
	if len(stored) != 0 {
		t.Fatalf("expected notifications purged, got %+v", stored)
	}
}

func TestHandleEvent_RejectsMalformedPayloads(t *testing.T) {
	handler := NewNotificationEventHandler(memory.NewRepository(), zap.NewNop())

	tests := []*events.Event{
		events.NewEvent(events.NotificationRequestedEvent, events.EventVersionV1, map[string]any{"type": "comment_received"}, events.Headers{}),
		events.NewEvent(events.NotificationRequestedEvent, events.EventVersionV1, map[string]any{"userId": "u1"}, events.Headers{}),
		events.NewEvent(events.NotificationPurgeEvent, events.EventVersionV1, map[string]any{}, events.Headers{}),
		events.NewEvent(events.NotificationPurgeEvent, events.EventVersionV1, "not an object", events.Headers{}),
	}

	for _, event := range tests {
		if err := handler.HandleEvent(context.Background(), event); err == nil {
			t.Errorf("expected error for %s with payload %v", event.Event, event.Payload)
		}
	}
}

type failingStore struct{}

func (failingStore) InsertNotification(context.Context, domain.Notification) (domain.Notification, error) {
	return domain.Notification{}, errors.New("db down")
}

func (failingStore) DeleteNotificationsByCommentID(context.Context, string) (int64, error) {
	return 0, errors.New("db down")
}

func TestHandleEvent_StoreFailureIsReturned(t *testing.T) {
	handler := NewNotificationEventHandler(failingStore{}, zap.NewNop())
	event := events.NewEvent(events.NotificationPurgeEvent, events.EventVersionV1, map[string]any{"commentId": "c1"}, events.Headers{})

	if err := handler.HandleEvent(context.Background(), event); err == nil {
		t.Fatalf("expected store failure to surface so the delivery is dead-lettered")
	}
}

func TestHandleEvent_UnknownEventIsIgnored(t *testing.T) {
	handler := NewNotificationEventHandler(failingStore{}, zap.NewNop())
	event := events.NewEvent("notification.unknown", events.EventVersionV1, nil, events.Headers{})

	if err := handler.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected unknown event to be ignored, got %v", err)
	}
}
