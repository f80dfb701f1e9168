package models

import (
	"time"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string // "user" or "admin"

	// Password reset state. Digest and expiry are set and cleared together;
	// ResetSecretPlain is written only outside production.
	ResetSecretDigest *string
	ResetSecretPlain  *string
	ResetExpiresAt    *time.Time

	// Wallet link state. WalletAddress is unique across accounts when set.
	// Nonce always has a value and rotates on every successful bind.
	WalletAddress *string
	Nonce         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasActiveReset reports whether a reset secret is pending and not yet expired.
func (u *User) HasActiveReset(now time.Time) bool {
	return u.ResetSecretDigest != nil && u.ResetExpiresAt != nil && now.Before(*u.ResetExpiresAt)
}
