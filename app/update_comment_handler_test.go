package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type fakeArchive struct {
	archiveRevisionFn func(commentID, body string, at time.Time) (string, error)
	calls             int
}

func (f *fakeArchive) ArchiveRevision(commentID, body string, at time.Time) (string, error) {
	f.calls++
	return f.archiveRevisionFn(commentID, body, at)
}

func TestUpdateComment_ByAuthor(t *testing.T) {
	f := newFixture(t)
	original := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C1", Body: "first"})

	res, err := f.update.Handle(as("u-jane"), &UpdateCommentRequest{CommentID: original.ID, Body: "  second  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Comment.IsEdited || res.Comment.Body != "second" {
		t.Fatalf("unexpected comment %+v", res.Comment)
	}
	if !res.Comment.UpdatedAt.After(original.UpdatedAt) {
		t.Fatalf("expected updatedAt to move forward")
	}
	if len(f.dispatcher.requests) != 0 {
		t.Fatalf("update must not notify")
	}
}

func TestUpdateComment_ByOtherUserLooksLikeNotFound(t *testing.T) {
	f := newFixture(t)
	original := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C1", Body: "first"})

	_, errOther := f.update.Handle(as("u-bob"), &UpdateCommentRequest{CommentID: original.ID, Body: "hijack"})
	_, errMissing := f.update.Handle(as("u-bob"), &UpdateCommentRequest{CommentID: "1b4e28ba-2fa1-11d2-883f-0016d3cca427", Body: "hijack"})

	other := assertStatus(t, errOther, http.StatusNotFound)
	missing := assertStatus(t, errMissing, http.StatusNotFound)
	if other.Code != missing.Code || other.Message != missing.Message {
		t.Fatalf("expected indistinguishable failures, got %q and %q", other.Code, missing.Code)
	}

	stored, _ := f.repo.GetCommentByID(context.Background(), original.ID)
	if stored.Body != "first" || stored.IsEdited {
		t.Fatalf("expected original body unchanged, got %+v", stored)
	}
}

func TestUpdateComment_Validation(t *testing.T) {
	f := newFixture(t)
	original := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C1", Body: "first"})

	_, err := f.update.Handle(context.Background(), &UpdateCommentRequest{CommentID: original.ID, Body: "x"})
	assertStatus(t, err, http.StatusUnauthorized)

	_, err = f.update.Handle(as("u-jane"), &UpdateCommentRequest{CommentID: original.ID, Body: "   "})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = f.update.Handle(as("u-jane"), &UpdateCommentRequest{CommentID: "not-a-uuid", Body: "x"})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestUpdateComment_DeletedCommentCannotBeEdited(t *testing.T) {
	f := newFixture(t)
	original := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C1", Body: "first"})
	if _, err := f.delete.Handle(as("u-jane"), &DeleteCommentRequest{CommentID: original.ID}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	_, err := f.update.Handle(as("u-jane"), &UpdateCommentRequest{CommentID: original.ID, Body: "revived"})

	assertStatus(t, err, http.StatusNotFound)
}

func TestUpdateComment_ArchivesPreviousBody(t *testing.T) {
	f := newFixture(t)
	var archivedBody string
	archive := &fakeArchive{
		archiveRevisionFn: func(_ string, body string, _ time.Time) (string, error) {
			archivedBody = body
			return "key", nil
		},
	}
	handler := NewUpdateCommentHandler(f.repo, archive)
	original := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C1", Body: "first"})

	if _, err := handler.Handle(as("u-jane"), &UpdateCommentRequest{CommentID: original.ID, Body: "second"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if archivedBody != "first" {
		t.Fatalf("expected previous body archived, got %q", archivedBody)
	}
}

func TestUpdateComment_ArchiveFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	archive := &fakeArchive{
		archiveRevisionFn: func(string, string, time.Time) (string, error) {
			return "", errors.New("bucket unavailable")
		},
	}
	handler := NewUpdateCommentHandler(f.repo, archive)
	original := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C1", Body: "first"})

	res, err := handler.Handle(as("u-jane"), &UpdateCommentRequest{CommentID: original.ID, Body: "second"})
	if err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}
	if res.Comment.Body != "second" || archive.calls != 1 {
		t.Fatalf("unexpected result %+v after %d archive calls", res.Comment, archive.calls)
	}
}
