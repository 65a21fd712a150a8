package app

import (
	"context"
	"discussion/pkg/httperror"
	"discussion/pkg/mention"
)

type SuggestMentionsHandler struct {
	repository Repository
}

func NewSuggestMentionsHandler(repository Repository) *SuggestMentionsHandler {
	return &SuggestMentionsHandler{
		repository: repository,
	}
}

type SuggestMentionsRequest struct {
	ContentID string `params:"contentId" json:"contentId" validate:"required,max=255"`
	Query     string `query:"q" json:"q" validate:"max=64"`
}

type SuggestMentionsResponse struct {
	Success     bool                `json:"success"`
	Suggestions []mention.Candidate `json:"suggestions"`
}

// Handle suggests participants of the content, excluding the caller.
func (h *SuggestMentionsHandler) Handle(ctx context.Context, req *SuggestMentionsRequest) (*SuggestMentionsResponse, error) {
	callerID, err := requireCaller(ctx, "mentions.suggest", "You must be logged in to mention users")
	if err != nil {
		return nil, err
	}

	if err := validateRequest("mentions.suggest", req); err != nil {
		return nil, err
	}

	participants, err := h.repository.ListParticipants(ctx, req.ContentID)
	if err != nil {
		return nil, httperror.InternalServerError("mentions.suggest.internal_error", "Failed to load participants", err)
	}

	candidates := make([]mention.Candidate, 0, len(participants))
	for _, participant := range participants {
		if participant.ID == callerID || !mention.ValidUsername(participant.Username) {
			continue
		}
		candidates = append(candidates, mention.Candidate{
			ID:       participant.ID,
			Display:  participant.Name(participant.Username),
			Username: participant.Username,
		})
	}

	suggestions := mention.Suggest(req.Query, candidates)
	for i := range suggestions {
		suggestions[i].Markup, _ = mention.Commit(suggestions[i].Display, suggestions[i].Username)
	}

	return &SuggestMentionsResponse{
		Success:     true,
		Suggestions: suggestions,
	}, nil
}
