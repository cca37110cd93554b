package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// AccountRepository defines the account store operations used by the identity core.
// Implementations normalize emails with entity.NormalizeEmail.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)

	// SetToken overwrites any outstanding token of the same purpose.
	SetToken(ctx context.Context, id string, purpose entity.TokenPurpose, tokenHash string, expiresAt time.Time) error
	// ConsumeToken matches the digest, checks expiry, applies the purpose side
	// effect and clears the token in one atomic step. ErrNotFound when nothing matched.
	ConsumeToken(ctx context.Context, in entity.TokenConsumption) (*entity.Account, error)

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.Account, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*entity.Account, error)
}
