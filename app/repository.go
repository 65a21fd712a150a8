package app

import (
	"context"
	"discussion/domain"
)

// Repository is the comment store. Lookups that find nothing return an error
// wrapping sql.ErrNoRows.
type Repository interface {
	Close() error

	// CreateComment assigns id, sequence and timestamps. A parent that does not
	// exist within the same content yields sql.ErrNoRows.
	CreateComment(ctx context.Context, comment domain.Comment) (domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (domain.Comment, error)
	// UpdateComment replaces the body of a live comment owned by authorID.
	UpdateComment(ctx context.Context, id, authorID, body string) (domain.Comment, error)
	// SoftDeleteComment reports false when no comment with id is owned by authorID.
	SoftDeleteComment(ctx context.Context, id, authorID string) (bool, error)
	ListCommentsByContentID(ctx context.Context, contentID, callerID string) ([]domain.CommentWithAuthor, error)

	// AddUpvote and RemoveUpvote report whether membership actually changed.
	AddUpvote(ctx context.Context, commentID, userID string) (bool, error)
	RemoveUpvote(ctx context.Context, commentID, userID string) (bool, error)
	CountUpvotes(ctx context.Context, commentID string) (int, error)

	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUsersByUsernames(ctx context.Context, usernames []string) ([]domain.User, error)
	// ListParticipants returns the users taking part in a content: registered
	// participants plus everyone who has commented on it.
	ListParticipants(ctx context.Context, contentID string) ([]domain.User, error)
}
