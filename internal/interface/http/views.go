package handlers

import (
	"time"

	"github.com/oksasatya/go-ddd-identity/internal/application"
	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
)

// AccountView is the public shape of an account. Credential material is never included.
type AccountView struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toAccountView(a *entity.Account) AccountView {
	return AccountView{
		ID:            a.ID,
		Email:         a.Email,
		Name:          a.Name,
		Role:          a.Role.String(),
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

type SessionView struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toSessionView(s *application.Session) SessionView {
	return SessionView{AccountID: s.AccountID, Email: s.Email, Role: s.Role.String(), ExpiresAt: s.ExpiresAt}
}
