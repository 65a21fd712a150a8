package app

import (
	"context"
	"database/sql"
	"discussion/domain"
	"discussion/pkg/httperror"
	"discussion/pkg/notify"
	"errors"
	"strings"
)

type CreateCommentHandler struct {
	repository Repository
	notifier   *commentNotifier
}

func NewCreateCommentHandler(repository Repository, dispatcher notify.Dispatcher, directory UserDirectory) *CreateCommentHandler {
	return &CreateCommentHandler{
		repository: repository,
		notifier: &commentNotifier{
			repository: repository,
			dispatcher: dispatcher,
			directory:  directory,
		},
	}
}

type CreateCommentRequest struct {
	ContentID       string             `params:"contentId" json:"contentId" validate:"required,max=255"`
	ContentKind     domain.ContentKind `json:"contentKind" validate:"omitempty,oneof=reflection round"`
	Body            string             `json:"body" validate:"required,min=1,max=10000"`
	ParentCommentID *string            `json:"parentCommentId,omitempty" validate:"omitempty,uuid"`
	ContentAuthorID *string            `json:"contentAuthorId,omitempty" validate:"omitempty,max=255"`
}

type CreateCommentResponse struct {
	Success bool           `json:"success"`
	Comment domain.Comment `json:"comment"`
}

func (h *CreateCommentHandler) Handle(ctx context.Context, req *CreateCommentRequest) (*CreateCommentResponse, error) {
	callerID, err := requireCaller(ctx, "comments.create", "You must be logged in to comment")
	if err != nil {
		return nil, err
	}

	req.Body = strings.TrimSpace(req.Body)
	if err := validateRequest("comments.create", req); err != nil {
		return nil, err
	}

	comment := domain.Comment{
		ContentID:       req.ContentID,
		ContentKind:     req.ContentKind,
		AuthorID:        callerID,
		ParentCommentID: req.ParentCommentID,
		Body:            req.Body,
	}
	if comment.ContentKind == "" {
		comment.ContentKind = domain.ContentKindReflection
	}

	var parent *domain.Comment
	if req.ParentCommentID != nil {
		found, err := h.repository.GetCommentByID(ctx, *req.ParentCommentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, httperror.NotFound("comments.create.parent_not_found", "Parent comment not found", nil)
			}

			return nil, httperror.InternalServerError("comments.create.internal_error", "Failed to get parent comment", err)
		}

		// Threads never cross content boundaries.
		if found.ContentID != req.ContentID {
			return nil, httperror.NotFound("comments.create.parent_not_found", "Parent comment not found", nil)
		}

		comment.ContentKind = found.ContentKind
		parent = &found
	}

	created, err := h.repository.CreateComment(ctx, comment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NotFound("comments.create.parent_not_found", "Parent comment not found", nil)
		}

		return nil, httperror.InternalServerError("comments.create.internal_error", "Failed to create comment", err)
	}

	h.notifier.commentCreated(ctx, created, parent, req.ContentAuthorID)

	return &CreateCommentResponse{
		Success: true,
		Comment: created,
	}, nil
}
