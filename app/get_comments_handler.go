package app

import (
	"context"
	"discussion/domain"
	"discussion/pkg/httperror"
	"discussion/pkg/mention"
	"slices"

	"go.uber.org/zap"
)

type GetCommentsHandler struct {
	repository Repository
	renderer   BodyRenderer
}

func NewGetCommentsHandler(repository Repository, renderer BodyRenderer) *GetCommentsHandler {
	return &GetCommentsHandler{
		repository: repository,
		renderer:   renderer,
	}
}

type GetCommentsRequest struct {
	ContentID string `params:"contentId" json:"contentId" validate:"required,max=255"`
	Order     string `query:"order" json:"order" validate:"omitempty,oneof=asc desc"`
}

type GetCommentsResponse struct {
	Success       bool                 `json:"success"`
	Comments      []*domain.ThreadNode `json:"comments"`
	TotalComments int                  `json:"totalComments"`
}

func (h *GetCommentsHandler) Handle(ctx context.Context, req *GetCommentsRequest) (*GetCommentsResponse, error) {
	if err := validateRequest("comments.index", req); err != nil {
		return nil, err
	}

	rows, err := h.repository.ListCommentsByContentID(ctx, req.ContentID, CallerID(ctx))
	if err != nil {
		// An empty list next to the failure tells clients to show an error
		// instead of "no comments yet".
		return nil, httperror.InternalServerError(
			"comments.index.failed",
			"Failed to load comments",
			err,
		).With("comments", []any{})
	}

	for i := range rows {
		if rows[i].IsDeleted {
			rows[i].Body = ""
		}
	}

	tree := domain.BuildThread(rows)
	if req.Order == "desc" {
		slices.Reverse(tree)
	}

	known := h.knownUsernames(ctx, rows)
	domain.Walk(tree, func(node *domain.ThreadNode) {
		if node.IsDeleted {
			return
		}
		node.BodyHTML = h.renderer.Body(node.Body, func(username string) bool {
			return known[username]
		})
	})

	return &GetCommentsResponse{
		Success:       true,
		Comments:      tree,
		TotalComments: domain.CountNodes(tree),
	}, nil
}

// knownUsernames resolves every mentioned username once per read. When the
// lookup fails, all mentions render as plain text.
func (h *GetCommentsHandler) knownUsernames(ctx context.Context, rows []domain.CommentWithAuthor) map[string]bool {
	seen := make(map[string]bool)
	usernames := make([]string, 0)
	for _, row := range rows {
		for _, username := range mention.Usernames(row.Body) {
			if !seen[username] {
				seen[username] = true
				usernames = append(usernames, username)
			}
		}
	}

	known := make(map[string]bool, len(usernames))
	if len(usernames) == 0 {
		return known
	}

	users, err := h.repository.GetUsersByUsernames(ctx, usernames)
	if err != nil {
		zap.L().Warn("Failed to resolve mentioned users", zap.Error(err))
		return known
	}

	for _, user := range users {
		known[user.Username] = true
	}
	return known
}
