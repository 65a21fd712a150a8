package app

import (
	"context"
	"database/sql"
	"discussion/pkg/httperror"
	"discussion/pkg/notify"
	"errors"

	"go.uber.org/zap"
)

type ToggleUpvoteHandler struct {
	repository Repository
	notifier   *commentNotifier
}

func NewToggleUpvoteHandler(repository Repository, dispatcher notify.Dispatcher, directory UserDirectory) *ToggleUpvoteHandler {
	return &ToggleUpvoteHandler{
		repository: repository,
		notifier: &commentNotifier{
			repository: repository,
			dispatcher: dispatcher,
			directory:  directory,
		},
	}
}

// CurrentlyUpvoted is the caller's last known state. It only selects between
// adding and removing; the outcome is decided by the stored upvote set.
type ToggleUpvoteRequest struct {
	CommentID        string `params:"commentId" json:"commentId" validate:"required,uuid"`
	CurrentlyUpvoted bool   `json:"currentlyUpvoted"`
}

type ToggleUpvoteResponse struct {
	Success     bool `json:"success"`
	Upvoted     bool `json:"upvoted"`
	UpvoteCount *int `json:"upvoteCount,omitempty"`
}

func (h *ToggleUpvoteHandler) Handle(ctx context.Context, req *ToggleUpvoteRequest) (*ToggleUpvoteResponse, error) {
	callerID, err := requireCaller(ctx, "comments.upvote", "You must be logged in to upvote")
	if err != nil {
		return nil, err
	}

	if err := validateRequest("comments.upvote", req); err != nil {
		return nil, err
	}

	comment, err := h.repository.GetCommentByID(ctx, req.CommentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NotFound("comments.upvote.not_found", "Comment not found", nil)
		}

		return nil, httperror.InternalServerError("comments.upvote.internal_error", "Failed to get comment", err)
	}

	var changed bool
	if req.CurrentlyUpvoted {
		changed, err = h.repository.RemoveUpvote(ctx, req.CommentID, callerID)
	} else {
		changed, err = h.repository.AddUpvote(ctx, req.CommentID, callerID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NotFound("comments.upvote.not_found", "Comment not found", nil)
		}

		return nil, httperror.InternalServerError("comments.upvote.internal_error", "Failed to toggle upvote", err)
	}

	res := &ToggleUpvoteResponse{
		Success: true,
		Upvoted: !req.CurrentlyUpvoted,
	}

	count, err := h.repository.CountUpvotes(ctx, req.CommentID)
	if err != nil {
		zap.L().Warn("Failed to count upvotes",
			zap.String("commentId", req.CommentID),
			zap.Error(err),
		)
	} else {
		res.UpvoteCount = &count
	}

	// Only a real insert is worth a notification; a repeated add is a no-op.
	if !req.CurrentlyUpvoted && changed {
		h.notifier.upvoted(ctx, comment, callerID)
	}

	return res, nil
}
