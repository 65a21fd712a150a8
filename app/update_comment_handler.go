package app

import (
	"context"
	"database/sql"
	"discussion/domain"
	"discussion/pkg/httperror"
	"errors"
	"strings"

	"go.uber.org/zap"
)

type UpdateCommentHandler struct {
	repository Repository
	archive    RevisionArchive
}

// NewUpdateCommentHandler accepts a nil archive when revisions are not kept.
func NewUpdateCommentHandler(repository Repository, archive RevisionArchive) *UpdateCommentHandler {
	return &UpdateCommentHandler{
		repository: repository,
		archive:    archive,
	}
}

type UpdateCommentRequest struct {
	CommentID string `params:"commentId" json:"commentId" validate:"required,uuid"`
	Body      string `json:"body" validate:"required,min=1,max=10000"`
}

type UpdateCommentResponse struct {
	Success bool           `json:"success"`
	Comment domain.Comment `json:"comment"`
}

func notFoundOrNotYours(op string) error {
	return httperror.NotFound(
		"comments."+op+".not_found",
		"Comment not found or you can only "+op+" your own comments",
		nil,
	)
}

func (h *UpdateCommentHandler) Handle(ctx context.Context, req *UpdateCommentRequest) (*UpdateCommentResponse, error) {
	callerID, err := requireCaller(ctx, "comments.update", "You must be logged in to edit comments")
	if err != nil {
		return nil, err
	}

	req.Body = strings.TrimSpace(req.Body)
	if err := validateRequest("comments.update", req); err != nil {
		return nil, err
	}

	existing, err := h.repository.GetCommentByID(ctx, req.CommentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundOrNotYours("update")
		}

		return nil, httperror.InternalServerError("comments.update.internal_error", "Failed to get comment", err)
	}

	if existing.AuthorID != callerID || existing.IsDeleted {
		return nil, notFoundOrNotYours("update")
	}

	updated, err := h.repository.UpdateComment(ctx, req.CommentID, callerID, req.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundOrNotYours("update")
		}

		return nil, httperror.InternalServerError("comments.update.internal_error", "Failed to update comment", err)
	}

	h.archiveRevision(existing, updated)

	return &UpdateCommentResponse{
		Success: true,
		Comment: updated,
	}, nil
}

func (h *UpdateCommentHandler) archiveRevision(previous, updated domain.Comment) {
	if h.archive == nil || previous.Body == updated.Body {
		return
	}

	key, err := h.archive.ArchiveRevision(previous.ID, previous.Body, updated.UpdatedAt)
	if err != nil {
		zap.L().Error("Failed to archive comment revision",
			zap.String("commentId", previous.ID),
			zap.Error(err),
		)
		return
	}

	zap.L().Debug("Comment revision archived",
		zap.String("commentId", previous.ID),
		zap.String("key", key),
	)
}
