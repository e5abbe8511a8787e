package model

import "time"

// RefreshToken mirrors the 'refresh_tokens' table. Only the SHA-256 hash of
// the secret is stored; the raw value exists exactly once, in the response
// that issued it.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
