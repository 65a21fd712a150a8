package middleware

import (
	"context"
	"discussion/app"
	"discussion/pkg/httperror"
	"discussion/pkg/session"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SessionResolver interface {
	LookupUserID(ctx context.Context, token string) (string, error)
}

// ResolveCaller turns an Authorization header value into a user id. An empty
// header is an anonymous caller; a token that does not resolve is rejected.
func ResolveCaller(ctx context.Context, resolver SessionResolver, authorization string) (string, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return "", nil
	}

	scheme, token, ok := strings.Cut(authorization, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", httperror.Unauthorized(
			"auth.malformed_authorization",
			"Authorization header must be a bearer token",
			nil,
		)
	}

	userID, err := resolver.LookupUserID(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return "", httperror.Unauthorized("auth.invalid_session", "Session is invalid or expired", nil)
		}

		zap.L().Error("Session lookup failed", zap.Error(err))
		return "", httperror.ServiceUnavailable("auth.session_unavailable", "Session store unavailable", err)
	}

	return userID, nil
}

// NewCallerMiddleware attaches the caller to the request context. Without a
// resolver the service trusts the User-ID header set by the gateway in front
// of it.
func NewCallerMiddleware(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userCtx := c.UserContext()
		if userCtx == nil {
			userCtx = context.Background()
		}

		var userID string
		if resolver == nil {
			userID = strings.TrimSpace(c.Get("User-ID"))
		} else {
			var err error
			userID, err = ResolveCaller(userCtx, resolver, c.Get(fiber.HeaderAuthorization))
			if err != nil {
				return reject(c, err)
			}
		}

		if userID != "" {
			c.SetUserContext(app.WithCallerID(userCtx, userID))
		}
		return c.Next()
	}
}

func reject(c *fiber.Ctx, err error) error {
	var httpErr *httperror.Error
	if !errors.As(err, &httpErr) {
		httpErr = httperror.InternalServerError("auth.internal_error", "Internal server error.", err)
	}

	zap.L().Warn("Request rejected by caller middleware", zap.String("code", httpErr.Code))

	return c.Status(httpErr.Status).JSON(fiber.Map{
		"success": false,
		"code":    httpErr.Code,
		"error":   httpErr.Message,
	})
}
