package app

import (
	"context"
	"discussion/domain"
	"discussion/pkg/mention"
	"discussion/pkg/notify"
	"fmt"

	"go.uber.org/zap"
)

// commentNotifier fans a comment event out to the notification dispatcher.
// Every failure is logged and swallowed.
type commentNotifier struct {
	repository Repository
	dispatcher notify.Dispatcher
	directory  UserDirectory
}

// recipients tracks who has already been notified about one comment.
type recipients map[string]bool

func (r recipients) claim(userID string) bool {
	if userID == "" || r[userID] {
		return false
	}
	r[userID] = true
	return true
}

func (n *commentNotifier) commentCreated(ctx context.Context, comment domain.Comment, parent *domain.Comment, contentAuthorID *string) {
	notified := recipients{comment.AuthorID: true}
	actor := n.directory.DisplayName(ctx, comment.AuthorID)
	preview := notify.Preview(comment.Body)

	if contentAuthorID != nil && notified.claim(*contentAuthorID) {
		n.send(ctx, notify.Request{
			UserID:  *contentAuthorID,
			Type:    domain.NotificationCommentReceived,
			Title:   "New comment on your " + string(comment.ContentKind),
			Message: fmt.Sprintf("%s commented: %s", actor, preview),
			Metadata: map[string]any{
				"commentId":   comment.ID,
				"contentId":   comment.ContentID,
				"commenterId": comment.AuthorID,
			},
		})
	}

	if parent != nil && !parent.IsDeleted && notified.claim(parent.AuthorID) {
		n.send(ctx, notify.Request{
			UserID:  parent.AuthorID,
			Type:    domain.NotificationCommentReplyReceived,
			Title:   "New reply to your comment",
			Message: fmt.Sprintf("%s replied to your comment: %s", actor, preview),
			Metadata: map[string]any{
				"commentId":       comment.ID,
				"parentCommentId": parent.ID,
				"contentId":       comment.ContentID,
				"replierId":       comment.AuthorID,
			},
		})
	}

	if comment.IsRoot() && comment.ContentKind == domain.ContentKindRound {
		n.roundDiscussionStarted(ctx, comment, actor, preview, notified)
	}

	n.mentioned(ctx, comment, actor, preview, notified)
}

func (n *commentNotifier) roundDiscussionStarted(ctx context.Context, comment domain.Comment, actor, preview string, notified recipients) {
	participants, err := n.repository.ListParticipants(ctx, comment.ContentID)
	if err != nil {
		zap.L().Error("Failed to notify round participants",
			zap.String("contentId", comment.ContentID),
			zap.Error(err),
		)
		return
	}

	for _, participant := range participants {
		if !notified.claim(participant.ID) {
			continue
		}
		n.send(ctx, notify.Request{
			UserID:  participant.ID,
			Type:    domain.NotificationCommentReceived,
			Title:   "New discussion in your round",
			Message: fmt.Sprintf("%s started a discussion: %s", actor, preview),
			Metadata: map[string]any{
				"commentId":   comment.ID,
				"contentId":   comment.ContentID,
				"commenterId": comment.AuthorID,
			},
		})
	}
}

func (n *commentNotifier) mentioned(ctx context.Context, comment domain.Comment, actor, preview string, notified recipients) {
	usernames := mention.Usernames(comment.Body)
	if len(usernames) == 0 {
		return
	}

	users, err := n.repository.GetUsersByUsernames(ctx, usernames)
	if err != nil {
		zap.L().Error("Failed to resolve mentioned users",
			zap.String("commentId", comment.ID),
			zap.Strings("usernames", usernames),
			zap.Error(err),
		)
		return
	}

	for _, user := range users {
		if !notified.claim(user.ID) {
			continue
		}
		n.send(ctx, notify.Request{
			UserID:  user.ID,
			Type:    domain.NotificationMentionReceived,
			Title:   "You were mentioned in a comment",
			Message: fmt.Sprintf("%s mentioned you: %s", actor, preview),
			Metadata: map[string]any{
				"commentId":   comment.ID,
				"contentId":   comment.ContentID,
				"mentionerId": comment.AuthorID,
			},
		})
	}
}

// upvoted tells the author about a new upvote. Deleted comments have no body
// left to quote, so they stay silent.
func (n *commentNotifier) upvoted(ctx context.Context, comment domain.Comment, upvoterID string) {
	if comment.AuthorID == upvoterID || comment.IsDeleted {
		return
	}

	actor := n.directory.DisplayName(ctx, upvoterID)
	n.send(ctx, notify.Request{
		UserID:  comment.AuthorID,
		Type:    domain.NotificationCommentUpvoted,
		Title:   "Someone liked your comment",
		Message: fmt.Sprintf("%s liked your comment: %s", actor, notify.Preview(comment.Body)),
		Metadata: map[string]any{
			"commentId": comment.ID,
			"contentId": comment.ContentID,
			"upvoterId": upvoterID,
		},
	})
}

func (n *commentNotifier) commentDeleted(ctx context.Context, commentID string) {
	if err := n.dispatcher.Purge(ctx, commentID); err != nil {
		zap.L().Error("Failed to purge comment notifications",
			zap.String("commentId", commentID),
			zap.Error(err),
		)
	}
}

func (n *commentNotifier) send(ctx context.Context, req notify.Request) {
	if err := n.dispatcher.Notify(ctx, req); err != nil {
		zap.L().Error("Failed to dispatch notification",
			zap.String("userId", req.UserID),
			zap.String("type", string(req.Type)),
			zap.Error(err),
		)
	}
}
