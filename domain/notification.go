package domain

import "time"

type NotificationType string

const (
	NotificationCommentReceived      NotificationType = "comment_received"
	NotificationCommentReplyReceived NotificationType = "comment_reply_received"
	NotificationCommentUpvoted       NotificationType = "comment_upvoted"
	NotificationMentionReceived      NotificationType = "mention_received"
)

type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"userId" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Metadata  map[string]any   `json:"metadata" db:"-"`
	IsRead    bool             `json:"isRead" db:"is_read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}
