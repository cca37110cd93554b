package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

// IssuedToken is the raw token handed to the notifier. Only its digest is stored.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer mints and consumes single-use verification and reset tokens.
type TokenIssuer struct {
	Repo      repo.AccountRepository
	VerifyTTL time.Duration
	ResetTTL  time.Duration
	Now       func() time.Time
}

func NewTokenIssuer(r repo.AccountRepository, verifyTTL, resetTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{Repo: r, VerifyTTL: verifyTTL, ResetTTL: resetTTL, Now: time.Now}
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *TokenIssuer) TTL(p entity.TokenPurpose) time.Duration {
	if p == entity.PurposeReset {
		return t.ResetTTL
	}
	return t.VerifyTTL
}

// Issue writes a fresh token for the account, replacing any outstanding one of
// the same purpose.
func (t *TokenIssuer) Issue(ctx context.Context, accountID string, p entity.TokenPurpose) (IssuedToken, error) {
	if !p.Valid() {
		return IssuedToken{}, fmt.Errorf("issue token: invalid purpose %v", p)
	}
	tok, err := helpers.GenToken(helpers.TokenBytes)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("generate token: %w", err)
	}
	exp := t.now().Add(t.TTL(p))
	if err := t.Repo.SetToken(ctx, accountID, p, helpers.TokenDigest(tok), exp); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return IssuedToken{}, ErrAccountNotFound
		}
		return IssuedToken{}, storeErr("set token", err)
	}
	return IssuedToken{Token: tok, ExpiresAt: exp}, nil
}

// Consume succeeds at most once per token. For PurposeReset newPasswordHash
// replaces the stored hash in the same atomic step.
func (t *TokenIssuer) Consume(ctx context.Context, p entity.TokenPurpose, token, newPasswordHash string) (*entity.Account, error) {
	if token == "" || !p.Valid() {
		return nil, ErrInvalidToken
	}
	if p == entity.PurposeReset && newPasswordHash == "" {
		return nil, fmt.Errorf("consume reset token: empty password hash")
	}
	a, err := t.Repo.ConsumeToken(ctx, entity.TokenConsumption{
		Purpose:         p,
		TokenHash:       helpers.TokenDigest(token),
		Now:             t.now(),
		NewPasswordHash: newPasswordHash,
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, storeErr("consume token", err)
	}
	return a, nil
}
