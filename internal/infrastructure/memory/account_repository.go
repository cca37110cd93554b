package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/internal/domain/repository"
)

// AccountRepository is a process-local account store. Every mutation runs
// under one lock, so token consumption is a single check-and-clear.
type AccountRepository struct {
	mu       sync.Mutex
	byID     map[string]*entity.Account
	idByMail map[string]string
	now      func() time.Time
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:     map[string]*entity.Account{},
		idByMail: map[string]string{},
		now:      time.Now,
	}
}

func clone(a *entity.Account) *entity.Account {
	cp := *a
	if a.VerificationTokenExpiresAt != nil {
		t := *a.VerificationTokenExpiresAt
		cp.VerificationTokenExpiresAt = &t
	}
	if a.ResetTokenExpiresAt != nil {
		t := *a.ResetTokenExpiresAt
		cp.ResetTokenExpiresAt = &t
	}
	return &cp
}

func (r *AccountRepository) Create(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := entity.NormalizeEmail(a.Email)
	if _, ok := r.idByMail[email]; ok {
		return repository.ErrDuplicateEmail
	}
	now := r.now()
	a.ID = uuid.NewString()
	a.Email = email
	a.CreatedAt = now
	a.UpdatedAt = now
	r.byID[a.ID] = clone(a)
	r.idByMail[email] = a.ID
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(a), nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.idByMail[entity.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *AccountRepository) SetToken(_ context.Context, id string, p entity.TokenPurpose, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	exp := expiresAt
	switch p {
	case entity.PurposeVerify:
		a.VerificationTokenHash, a.VerificationTokenExpiresAt = tokenHash, &exp
	case entity.PurposeReset:
		a.ResetTokenHash, a.ResetTokenExpiresAt = tokenHash, &exp
	default:
		return repository.ErrNotFound
	}
	a.UpdatedAt = r.now()
	return nil
}

func (r *AccountRepository) ConsumeToken(_ context.Context, in entity.TokenConsumption) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if in.TokenHash == "" {
		return nil, repository.ErrNotFound
	}
	for _, a := range r.byID {
		switch in.Purpose {
		case entity.PurposeVerify:
			if a.VerificationTokenHash != in.TokenHash || a.VerificationTokenExpiresAt == nil || !a.VerificationTokenExpiresAt.After(in.Now) {
				continue
			}
			a.EmailVerified = true
			a.VerificationTokenHash, a.VerificationTokenExpiresAt = "", nil
		case entity.PurposeReset:
			if a.ResetTokenHash != in.TokenHash || a.ResetTokenExpiresAt == nil || !a.ResetTokenExpiresAt.After(in.Now) {
				continue
			}
			a.PasswordHash = in.NewPasswordHash
			a.ResetTokenHash, a.ResetTokenExpiresAt = "", nil
		default:
			return nil, repository.ErrNotFound
		}
		a.UpdatedAt = r.now()
		return clone(a), nil
	}
	return nil, repository.ErrNotFound
}

func (r *AccountRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = r.now()
	return nil
}

func (r *AccountRepository) UpdateRole(_ context.Context, id string, role entity.Role) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a.Role = role
	a.UpdatedAt = r.now()
	return clone(a), nil
}

func (r *AccountRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.idByMail, a.Email)
	delete(r.byID, id)
	return nil
}

// List returns accounts ordered by creation time, oldest first.
func (r *AccountRepository) List(_ context.Context, limit, offset int) ([]*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*entity.Account, 0, len(r.byID))
	for _, a := range r.byID {
		all = append(all, clone(a))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []*entity.Account{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
