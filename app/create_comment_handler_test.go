package app

import (
	"context"
	"discussion/domain"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestCreateComment_RootComment(t *testing.T) {
	f := newFixture(t)

	res, err := f.create.Handle(as("u-jane"), &CreateCommentRequest{ContentID: "C1", Body: "Great cover!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Success {
		t.Fatalf("expected success")
	}
	c := res.Comment
	if c.ID == "" || c.ParentCommentID != nil || c.IsDeleted || c.IsEdited {
		t.Fatalf("unexpected comment %+v", c)
	}
	if c.AuthorID != "u-jane" || c.ContentKind != domain.ContentKindReflection {
		t.Fatalf("unexpected author or kind %+v", c)
	}
	if c.CreatedAt.IsZero() {
		t.Fatalf("expected generated timestamp")
	}
}

func TestCreateComment_ReplyAppearsNested(t *testing.T) {
	f := newFixture(t)
	root := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C1", Body: "Great cover!"})
	f.mustCreate(t, "u-bob", CreateCommentRequest{ContentID: "C1", Body: "Thanks!", ParentCommentID: &root.ID})

	res := f.mustGet(t, "", "C1")

	if len(res.Comments) != 1 {
		t.Fatalf("expected 1 root, got %d", len(res.Comments))
	}
	if len(res.Comments[0].Replies) != 1 || res.Comments[0].TotalReplyCount != 1 {
		t.Fatalf("expected exactly one reply, got %+v", res.Comments[0])
	}
	if res.TotalComments != 2 {
		t.Fatalf("expected 2 comments in total, got %d", res.TotalComments)
	}
}

func TestCreateComment_RequiresCaller(t *testing.T) {
	f := newFixture(t)

	_, err := f.create.Handle(context.Background(), &CreateCommentRequest{ContentID: "C1", Body: "hi"})

	assertStatus(t, err, http.StatusUnauthorized)
}

func TestCreateComment_BodyLength(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty", "", http.StatusBadRequest},
		{"whitespace only", "   \n\t ", http.StatusBadRequest},
		{"too long", strings.Repeat("a", 10001), http.StatusBadRequest},
		{"max length", strings.Repeat("a", 10000), 0},
		{"max length after trimming", "  " + strings.Repeat("a", 10000) + "  ", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.create.Handle(as("u-jane"), &CreateCommentRequest{ContentID: "C1", Body: tt.body})
			if tt.status == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			assertStatus(t, err, tt.status)
		})
	}
}

func TestCreateComment_ParentMustExistInSameContent(t *testing.T) {
	f := newFixture(t)
	other := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C2", Body: "elsewhere"})

	missing := "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	_, err := f.create.Handle(as("u-bob"), &CreateCommentRequest{ContentID: "C1", Body: "x", ParentCommentID: &missing})
	assertStatus(t, err, http.StatusNotFound)

	_, err = f.create.Handle(as("u-bob"), &CreateCommentRequest{ContentID: "C1", Body: "x", ParentCommentID: &other.ID})
	assertStatus(t, err, http.StatusNotFound)
}

func TestCreateComment_NotifiesContentAuthor(t *testing.T) {
	f := newFixture(t)
	body := strings.Repeat("x", 150)

	comment := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C1", Body: body, ContentAuthorID: strPtr("u-bob")})

	got := f.dispatcher.to("u-bob")
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	n := got[0]
	if n.Type != domain.NotificationCommentReceived {
		t.Fatalf("unexpected type %s", n.Type)
	}
	if n.Message != "Jane Doe commented: "+strings.Repeat("x", 100)+"..." {
		t.Fatalf("unexpected message %q", n.Message)
	}
	if n.Metadata["commentId"] != comment.ID || n.Metadata["contentId"] != "C1" || n.Metadata["commenterId"] != "u-jane" {
		t.Fatalf("unexpected metadata %+v", n.Metadata)
	}
}

func TestCreateComment_DoesNotNotifySelf(t *testing.T) {
	f := newFixture(t)

	f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "C1", Body: "mine", ContentAuthorID: strPtr("u-jane")})

	if len(f.dispatcher.requests) != 0 {
		t.Fatalf("expected no notifications, got %+v", f.dispatcher.requests)
	}
}

func TestCreateComment_NotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("broker down")

	res, err := f.create.Handle(as("u-jane"), &CreateCommentRequest{ContentID: "C1", Body: "hi", ContentAuthorID: strPtr("u-bob")})
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success")
	}
}

func TestCreateComment_NotifiesParentAuthorOnce(t *testing.T) {
	f := newFixture(t)
	root := f.mustCreate(t, "u-bob", CreateCommentRequest{ContentID: "C1", Body: "root"})
	f.dispatcher.requests = nil

	// bob is both the content author and the parent author.
	f.mustCreate(t, "u-jane", CreateCommentRequest{
		ContentID:       "C1",
		Body:            "reply",
		ParentCommentID: &root.ID,
		ContentAuthorID: strPtr("u-bob"),
	})

	got := f.dispatcher.to("u-bob")
	if len(got) != 1 {
		t.Fatalf("expected 1 notification for bob, got %d", len(got))
	}

	f.dispatcher.requests = nil
	f.mustCreate(t, "u-carol", CreateCommentRequest{ContentID: "C1", Body: "another", ParentCommentID: &root.ID})

	got = f.dispatcher.to("u-bob")
	if len(got) != 1 || got[0].Type != domain.NotificationCommentReplyReceived {
		t.Fatalf("expected reply notification, got %+v", got)
	}
	if got[0].Metadata["parentCommentId"] != root.ID || got[0].Metadata["replierId"] != "u-carol" {
		t.Fatalf("unexpected metadata %+v", got[0].Metadata)
	}
}

func TestCreateComment_RoundRootNotifiesParticipants(t *testing.T) {
	f := newFixture(t)
	f.repo.AddParticipant("R1", "u-bob")
	f.repo.AddParticipant("R1", "u-carol")
	f.repo.AddParticipant("R1", "u-jane")

	f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "R1", ContentKind: domain.ContentKindRound, Body: "Let's discuss"})

	for _, userID := range []string{"u-bob", "u-carol"} {
		got := f.dispatcher.to(userID)
		if len(got) != 1 || got[0].Title != "New discussion in your round" {
			t.Fatalf("expected round notification for %s, got %+v", userID, got)
		}
	}
	if got := f.dispatcher.to("u-jane"); len(got) != 0 {
		t.Fatalf("commenter must not be notified, got %+v", got)
	}
}

func TestCreateComment_RoundReplyInheritsKindWithoutBroadcast(t *testing.T) {
	f := newFixture(t)
	f.repo.AddParticipant("R1", "u-carol")
	root := f.mustCreate(t, "u-jane", CreateCommentRequest{ContentID: "R1", ContentKind: domain.ContentKindRound, Body: "root"})
	f.dispatcher.requests = nil

	reply := f.mustCreate(t, "u-bob", CreateCommentRequest{ContentID: "R1", Body: "reply", ParentCommentID: &root.ID})

	if reply.ContentKind != domain.ContentKindRound {
		t.Fatalf("expected reply to inherit round kind, got %s", reply.ContentKind)
	}
	if got := f.dispatcher.to("u-carol"); len(got) != 0 {
		t.Fatalf("replies must not broadcast to participants, got %+v", got)
	}
}

func TestCreateComment_NotifiesMentionedUsers(t *testing.T) {
	f := newFixture(t)

	f.mustCreate(t, "u-jane", CreateCommentRequest{
		ContentID:       "C1",
		Body:            "cc @[Bob](bob) @[Ghost](ghost) @[Me](jane) @[Carol](carol)",
		ContentAuthorID: strPtr("u-carol"),
	})

	bob := f.dispatcher.to("u-bob")
	if len(bob) != 1 || bob[0].Type != domain.NotificationMentionReceived {
		t.Fatalf("expected mention notification for bob, got %+v", bob)
	}

	carol := f.dispatcher.to("u-carol")
	if len(carol) != 1 || carol[0].Type != domain.NotificationCommentReceived {
		t.Fatalf("expected carol to be notified once as content author, got %+v", carol)
	}

	if jane := f.dispatcher.to("u-jane"); len(jane) != 0 {
		t.Fatalf("self mention must not notify, got %+v", jane)
	}
	if len(f.dispatcher.requests) != 2 {
		t.Fatalf("expected 2 notifications in total, got %d", len(f.dispatcher.requests))
	}
}
