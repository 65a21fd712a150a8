package events

// Domain constants
const (
	NotificationExchange = "discussion.notification"
)

// Event names
const (
	NotificationRequestedEvent = "notification.requested"
	NotificationPurgeEvent     = "notification.purge"
)

// Event versions
const (
	EventVersionV1 = "v1"
)

// NotificationRequestedPayload asks the notification store to persist one
// notification for a recipient.
type NotificationRequestedPayload struct {
	UserID   string         `json:"userId"`
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata"`
}

// NotificationPurgePayload asks the notification store to drop every
// notification that references a comment.
type NotificationPurgePayload struct {
	CommentID string `json:"commentId"`
}
