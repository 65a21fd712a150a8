package domain

import "strings"

type User struct {
	ID                string  `json:"id" db:"id"`
	Username          string  `json:"username" db:"username"`
	DisplayName       *string `json:"displayName" db:"display_name"`
	Email             string  `json:"-" db:"email"`
	ProfilePictureURL *string `json:"profilePictureUrl" db:"profile_picture_url"`
}

// Name returns the public display name, then the username, then the local part
// of the email address, then fallback.
func (u User) Name(fallback string) string {
	if u.DisplayName != nil && strings.TrimSpace(*u.DisplayName) != "" {
		return *u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return fallback
}
