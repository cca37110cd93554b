package entity

import (
	"strings"
	"time"
)

// Account is the aggregate root of the identity domain.
// PasswordHash holds a bcrypt digest; token fields hold SHA-256 digests of the
// raw tokens and are always set and cleared together with their expiry.
type Account struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string
	Role          Role
	EmailVerified bool

	VerificationTokenHash      string
	VerificationTokenExpiresAt *time.Time

	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingToken reports whether a token of the given purpose is outstanding.
func (a *Account) HasPendingToken(p TokenPurpose) bool {
	switch p {
	case PurposeVerify:
		return a.VerificationTokenHash != "" && a.VerificationTokenExpiresAt != nil
	case PurposeReset:
		return a.ResetTokenHash != "" && a.ResetTokenExpiresAt != nil
	}
	return false
}

// NormalizeEmail is the single rule for email identity: trimmed, lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
