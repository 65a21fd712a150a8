package app

import (
	"context"
	"discussion/pkg/httperror"
	"discussion/pkg/notify"
)

type DeleteCommentHandler struct {
	repository Repository
	notifier   *commentNotifier
}

type DeleteCommentRequest struct {
	CommentID string `params:"commentId" json:"commentId" validate:"required,uuid"`
}

type DeleteCommentResponse struct {
	Success bool `json:"success"`
}

func NewDeleteCommentHandler(repository Repository, dispatcher notify.Dispatcher) *DeleteCommentHandler {
	return &DeleteCommentHandler{
		repository: repository,
		notifier: &commentNotifier{
			repository: repository,
			dispatcher: dispatcher,
		},
	}
}

// Handle soft-deletes the comment. Replies stay attached and keep their own
// content. Deleting an already deleted comment succeeds again.
func (h *DeleteCommentHandler) Handle(ctx context.Context, req *DeleteCommentRequest) (*DeleteCommentResponse, error) {
	callerID, err := requireCaller(ctx, "comments.delete", "You must be logged in to delete comments")
	if err != nil {
		return nil, err
	}

	if err := validateRequest("comments.delete", req); err != nil {
		return nil, err
	}

	deleted, err := h.repository.SoftDeleteComment(ctx, req.CommentID, callerID)
	if err != nil {
		return nil, httperror.InternalServerError("comments.delete.internal_error", "Failed to delete comment", err)
	}
	if !deleted {
		return nil, notFoundOrNotYours("delete")
	}

	h.notifier.commentDeleted(ctx, req.CommentID)

	return &DeleteCommentResponse{
		Success: true,
	}, nil
}
