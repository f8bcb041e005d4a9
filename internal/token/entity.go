// DamifeZion | 2026
// entity.go

package token

import (
	"time"

	"github.com/google/uuid"
)

// Purpose tags an ephemeral credential with the workflow it authorizes.
type Purpose string

const (
	PurposeResetPassword     Purpose = "reset_password"
	PurposeEmailVerification Purpose = "email_verification"
	PurposePhoneVerification Purpose = "phone_verification"
	PurposeUnknown           Purpose = "unknown"
)

// Token is a stored purpose-scoped credential: either a signed reset
// JWT or a numeric OTP. A reset flow stores one of each under the same
// purpose and both must be presented to complete it.
type Token struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Token     string    `db:"token"`
	Purpose   Purpose   `db:"purpose"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func New(
	userID, value string,
	purpose Purpose,
	ttl time.Duration,
	now time.Time,
) *Token {
	return &Token{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     value,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
	}
}

func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
