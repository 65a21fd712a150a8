package app

import (
	"context"
	"discussion/domain"
	"discussion/infra/memory"
	"discussion/pkg/httperror"
	"discussion/pkg/notify"
	"discussion/pkg/render"
	"errors"
	"sync"
	"testing"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	requests []notify.Request
	purged   []string
	err      error
}

func (d *recordingDispatcher) Notify(_ context.Context, req notify.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.requests = append(d.requests, req)
	return nil
}

func (d *recordingDispatcher) Purge(_ context.Context, commentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.purged = append(d.purged, commentID)
	return nil
}

func (d *recordingDispatcher) to(userID string) []notify.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notify.Request, 0)
	for _, req := range d.requests {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	return out
}

type directoryFunc func(ctx context.Context, userID string) string

func (f directoryFunc) DisplayName(ctx context.Context, userID string) string {
	return f(ctx, userID)
}

// faultyRepository fails selected calls and delegates the rest.
type faultyRepository struct {
	Repository
	listCommentsFn func(ctx context.Context, contentID, callerID string) ([]domain.CommentWithAuthor, error)
	countUpvotesFn func(ctx context.Context, commentID string) (int, error)
}

func (f *faultyRepository) ListCommentsByContentID(ctx context.Context, contentID, callerID string) ([]domain.CommentWithAuthor, error) {
	if f.listCommentsFn != nil {
		return f.listCommentsFn(ctx, contentID, callerID)
	}
	return f.Repository.ListCommentsByContentID(ctx, contentID, callerID)
}

func (f *faultyRepository) CountUpvotes(ctx context.Context, commentID string) (int, error) {
	if f.countUpvotesFn != nil {
		return f.countUpvotesFn(ctx, commentID)
	}
	return f.Repository.CountUpvotes(ctx, commentID)
}

type fixture struct {
	repo       *memory.Repository
	dispatcher *recordingDispatcher
	create     *CreateCommentHandler
	update     *UpdateCommentHandler
	delete     *DeleteCommentHandler
	upvote     *ToggleUpvoteHandler
	get        *GetCommentsHandler
	suggest    *SuggestMentionsHandler
}

func strPtr(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := memory.NewRepository()
	repo.AddUser(domain.User{ID: "u-jane", Username: "jane", DisplayName: strPtr("Jane Doe")})
	repo.AddUser(domain.User{ID: "u-bob", Username: "bob"})
	repo.AddUser(domain.User{ID: "u-carol", Username: "carol", DisplayName: strPtr("Carol")})

	dispatcher := &recordingDispatcher{}
	directory := directoryFunc(func(ctx context.Context, userID string) string {
		user, err := repo.GetUserByID(ctx, userID)
		if err != nil {
			return "Someone"
		}
		return user.Name("Someone")
	})

	return &fixture{
		repo:       repo,
		dispatcher: dispatcher,
		create:     NewCreateCommentHandler(repo, dispatcher, directory),
		update:     NewUpdateCommentHandler(repo, nil),
		delete:     NewDeleteCommentHandler(repo, dispatcher),
		upvote:     NewToggleUpvoteHandler(repo, dispatcher, directory),
		get:        NewGetCommentsHandler(repo, render.NewRenderer()),
		suggest:    NewSuggestMentionsHandler(repo),
	}
}

func as(userID string) context.Context {
	return WithCallerID(context.Background(), userID)
}

func (f *fixture) mustCreate(t *testing.T, userID string, req CreateCommentRequest) domain.Comment {
	t.Helper()
	res, err := f.create.Handle(as(userID), &req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return res.Comment
}

func (f *fixture) mustGet(t *testing.T, userID, contentID string) *GetCommentsResponse {
	t.Helper()
	ctx := context.Background()
	if userID != "" {
		ctx = as(userID)
	}
	res, err := f.get.Handle(ctx, &GetCommentsRequest{ContentID: contentID})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	return res
}

func assertStatus(t *testing.T, err error, status int) *httperror.Error {
	t.Helper()
	var httpErr *httperror.Error
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *httperror.Error with status %d, got %v", status, err)
	}
	if httpErr.Status != status {
		t.Fatalf("expected status %d, got %d (%s)", status, httpErr.Status, httpErr.Code)
	}
	return httpErr
}

