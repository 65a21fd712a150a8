// Package memory is an in-process comment store. It backs STORE_DRIVER=memory
// and the handler tests, and keeps the same contract as the Postgres store.
package memory

import (
	"context"
	"database/sql"
	"discussion/domain"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type participant struct {
	userID   string
	joinedAt time.Time
}

type Repository struct {
	mu            sync.RWMutex
	now           func() time.Time
	last          time.Time
	seq           int64
	comments      map[string]*domain.Comment
	upvotes       map[string]map[string]struct{}
	users         map[string]domain.User
	participants  map[string][]participant
	notifications []domain.Notification
}

func NewRepository() *Repository {
	return &Repository{
		now:          time.Now,
		comments:     make(map[string]*domain.Comment),
		upvotes:      make(map[string]map[string]struct{}),
		users:        make(map[string]domain.User),
		participants: make(map[string][]participant),
	}
}

func (r *Repository) Close() error {
	return nil
}

// tick returns a strictly increasing timestamp. Callers hold the write lock.
func (r *Repository) tick() time.Time {
	t := r.now().UTC().Truncate(time.Microsecond)
	if !t.After(r.last) {
		t = r.last.Add(time.Microsecond)
	}
	r.last = t
	return t
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, sql.ErrNoRows)
}

func (r *Repository) CreateComment(_ context.Context, comment domain.Comment) (domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if comment.ParentCommentID != nil {
		parent, ok := r.comments[*comment.ParentCommentID]
		if !ok || parent.ContentID != comment.ContentID {
			return domain.Comment{}, notFound("parent comment", *comment.ParentCommentID)
		}
	}

	now := r.tick()
	r.seq++

	comment.ID = uuid.NewString()
	comment.Seq = r.seq
	comment.IsEdited = false
	comment.IsDeleted = false
	comment.CreatedAt = now
	comment.UpdatedAt = now

	stored := comment
	r.comments[comment.ID] = &stored

	return comment, nil
}

func (r *Repository) GetCommentByID(_ context.Context, id string) (domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comment, ok := r.comments[id]
	if !ok {
		return domain.Comment{}, notFound("comment", id)
	}
	return *comment, nil
}

func (r *Repository) UpdateComment(_ context.Context, id, authorID, body string) (domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, ok := r.comments[id]
	if !ok || comment.AuthorID != authorID || comment.IsDeleted {
		return domain.Comment{}, notFound("comment", id)
	}

	comment.Body = body
	comment.IsEdited = true
	comment.UpdatedAt = r.tick()

	return *comment, nil
}

func (r *Repository) SoftDeleteComment(_ context.Context, id, authorID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, ok := r.comments[id]
	if !ok || comment.AuthorID != authorID {
		return false, nil
	}

	comment.IsDeleted = true
	comment.Body = ""
	comment.UpdatedAt = r.tick()

	return true, nil
}

func (r *Repository) ListCommentsByContentID(_ context.Context, contentID, callerID string) ([]domain.CommentWithAuthor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]domain.CommentWithAuthor, 0)
	for _, comment := range r.comments {
		if comment.ContentID != contentID {
			continue
		}

		voters := r.upvotes[comment.ID]
		_, upvoted := voters[callerID]

		rows = append(rows, domain.CommentWithAuthor{
			Comment:        *comment,
			Author:         r.authorOf(comment.AuthorID),
			UpvoteCount:    len(voters),
			HasUserUpvoted: callerID != "" && upvoted,
		})
	}

	slices.SortFunc(rows, func(a, b domain.CommentWithAuthor) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.Seq - b.Seq)
	})

	return rows, nil
}

func (r *Repository) authorOf(userID string) domain.CommentAuthor {
	user, ok := r.users[userID]
	if !ok {
		return domain.CommentAuthor{UserID: userID}
	}
	return domain.CommentAuthor{
		UserID:            user.ID,
		Username:          user.Username,
		DisplayName:       user.DisplayName,
		ProfilePictureURL: user.ProfilePictureURL,
	}
}

func (r *Repository) AddUpvote(_ context.Context, commentID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.comments[commentID]; !ok {
		return false, notFound("comment", commentID)
	}

	voters, ok := r.upvotes[commentID]
	if !ok {
		voters = make(map[string]struct{})
		r.upvotes[commentID] = voters
	}
	if _, present := voters[userID]; present {
		return false, nil
	}
	voters[userID] = struct{}{}
	return true, nil
}

func (r *Repository) RemoveUpvote(_ context.Context, commentID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	voters := r.upvotes[commentID]
	if _, present := voters[userID]; !present {
		return false, nil
	}
	delete(voters, userID)
	return true, nil
}

func (r *Repository) CountUpvotes(_ context.Context, commentID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.upvotes[commentID]), nil
}

func (r *Repository) AddUser(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.ID] = user
}

func (r *Repository) GetUserByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return domain.User{}, notFound("user", id)
	}
	return user, nil
}

func (r *Repository) GetUsersByUsernames(_ context.Context, usernames []string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(usernames))
	for _, username := range usernames {
		wanted[username] = true
	}

	users := make([]domain.User, 0, len(usernames))
	for _, user := range r.users {
		if wanted[user.Username] {
			users = append(users, user)
		}
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		return slices.Index(usernames, a.Username) - slices.Index(usernames, b.Username)
	})
	return users, nil
}

// AddParticipant registers userID as taking part in contentID, for example a
// round signup.
func (r *Repository) AddParticipant(contentID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.participants[contentID] = append(r.participants[contentID], participant{
		userID:   userID,
		joinedAt: r.tick(),
	})
}

func (r *Repository) ListParticipants(_ context.Context, contentID string) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := make(map[string]time.Time)
	note := func(userID string, at time.Time) {
		if first, ok := joined[userID]; !ok || at.Before(first) {
			joined[userID] = at
		}
	}
	for _, p := range r.participants[contentID] {
		note(p.userID, p.joinedAt)
	}
	for _, comment := range r.comments {
		if comment.ContentID == contentID {
			note(comment.AuthorID, comment.CreatedAt)
		}
	}

	users := make([]domain.User, 0, len(joined))
	for userID := range joined {
		if user, ok := r.users[userID]; ok {
			users = append(users, user)
		}
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		return joined[a.ID].Compare(joined[b.ID])
	})
	return users, nil
}

func (r *Repository) InsertNotification(_ context.Context, notification domain.Notification) (domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	notification.ID = uuid.NewString()
	notification.CreatedAt = r.tick()
	r.notifications = append(r.notifications, notification)
	return notification, nil
}

func (r *Repository) DeleteNotificationsByCommentID(_ context.Context, commentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.notifications)
	r.notifications = slices.DeleteFunc(r.notifications, func(n domain.Notification) bool {
		id, _ := n.Metadata["commentId"].(string)
		return id == commentID
	})
	return int64(before - len(r.notifications)), nil
}

func (r *Repository) ListNotifications(_ context.Context, userID string) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Notification, 0)
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}
