package app

import (
	"context"
	"discussion/pkg/httperror"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

type Handler[R any, Res any] interface {
	Handle(ctx context.Context, req *R) (*Res, error)
}

type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) string
}

type BodyRenderer interface {
	Body(body string, known func(username string) bool) string
}

type RevisionArchive interface {
	ArchiveRevision(commentID, body string, at time.Time) (string, error)
}

func validateRequest(code string, req any) error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return httperror.BadRequest(
				code+".validation_failed",
				"Validation failed for the request",
				ve.Error(),
			)
		}

		return httperror.InternalServerError(
			code+".validation_error",
			"An unexpected validation error occurred",
			err,
		)
	}

	return nil
}

func requireCaller(ctx context.Context, code, message string) (string, error) {
	callerID := CallerID(ctx)
	if callerID == "" {
		return "", httperror.Unauthorized(code+".unauthorized", message, nil)
	}
	return callerID, nil
}
