// Package directory answers "who is this user" for notification text, with a
// short-lived in-process cache in front of the user store.
package directory

import (
	"context"
	"discussion/domain"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	DefaultSize = 1024
	DefaultTTL  = 5 * time.Minute

	// UnknownName addresses an actor that cannot be resolved.
	UnknownName = "Someone"
)

type UserSource interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
}

type Directory struct {
	source UserSource
	cache  *expirable.LRU[string, domain.User]
}

func New(source UserSource, size int, ttl time.Duration) *Directory {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Directory{
		source: source,
		cache:  expirable.NewLRU[string, domain.User](size, nil, ttl),
	}
}

// GetUserByID returns the user, serving repeated lookups from the cache.
// Failed lookups are not cached.
func (d *Directory) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if user, ok := d.cache.Get(id); ok {
		return user, nil
	}

	user, err := d.source.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	d.cache.Add(id, user)
	return user, nil
}

// DisplayName never fails: an unresolvable user is UnknownName.
func (d *Directory) DisplayName(ctx context.Context, id string) string {
	user, err := d.GetUserByID(ctx, id)
	if err != nil {
		zap.L().Warn("Failed to resolve user for display name",
			zap.String("userId", id),
			zap.Error(err),
		)
		return UnknownName
	}
	return user.Name(UnknownName)
}
