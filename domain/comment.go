package domain

import "time"

type ContentKind string

const (
	ContentKindReflection ContentKind = "reflection"
	ContentKindRound      ContentKind = "round"
)

type Comment struct {
	ID              string      `json:"id" db:"id"`
	Seq             int64       `json:"-" db:"seq"`
	ContentID       string      `json:"contentId" db:"content_id"`
	ContentKind     ContentKind `json:"contentKind" db:"content_kind"`
	AuthorID        string      `json:"authorId" db:"author_id"`
	ParentCommentID *string     `json:"parentCommentId" db:"parent_comment_id"`
	Body            string      `json:"body" db:"body"`
	IsEdited        bool        `json:"isEdited" db:"is_edited"`
	IsDeleted       bool        `json:"isDeleted" db:"is_deleted"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
}

func (c Comment) IsRoot() bool {
	return c.ParentCommentID == nil
}

type CommentAuthor struct {
	UserID            string  `json:"userId" db:"user_id"`
	Username          string  `json:"username" db:"username"`
	DisplayName       *string `json:"displayName" db:"display_name"`
	ProfilePictureURL *string `json:"profilePictureUrl" db:"profile_picture_url"`
}

// CommentWithAuthor is one row of the flat, author-joined listing of a content's comments.
type CommentWithAuthor struct {
	Comment
	Author         CommentAuthor `json:"author" db:"author"`
	UpvoteCount    int           `json:"upvoteCount" db:"upvote_count"`
	HasUserUpvoted bool          `json:"hasUserUpvoted" db:"has_user_upvoted"`
}
