package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

// errNotAdministrator is returned when the seed email belongs to an account
// that nobody with admin rights has vouched for, e.g. a self-registered student.
var errNotAdministrator = errors.New("seed email belongs to a non-admin account; refusing to promote it")

type seedResult int

const (
	seedCreated seedResult = iota
	seedUpdated
)

func (r seedResult) String() string {
	if r == seedCreated {
		return "created"
	}
	return "updated"
}

// ensureSuperAdmin makes the seed account a SUPERADMIN holding the seed password.
// A missing account is created verified. An existing ADMIN or SUPERADMIN gets
// the seed password and the SUPERADMIN role. Any other existing account is
// left untouched.
func ensureSuperAdmin(ctx context.Context, accounts repo.AccountRepository, email, name, password string) (*entity.Account, seedResult, error) {
	email = entity.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, 0, errors.New("seed email and password are required")
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, 0, fmt.Errorf("hash password: %w", err)
	}

	existing, err := accounts.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		a := &entity.Account{
			Email:         email,
			Name:          name,
			PasswordHash:  hash,
			Role:          entity.RoleSuperAdmin,
			EmailVerified: true,
		}
		if err := accounts.Create(ctx, a); err != nil {
			return nil, 0, fmt.Errorf("create account: %w", err)
		}
		return a, seedCreated, nil
	case err != nil:
		return nil, 0, fmt.Errorf("look up account: %w", err)
	}

	if existing.Role != entity.RoleAdmin && existing.Role != entity.RoleSuperAdmin {
		return nil, 0, errNotAdministrator
	}
	if err := accounts.UpdatePassword(ctx, existing.ID, hash); err != nil {
		return nil, 0, fmt.Errorf("update password: %w", err)
	}
	if existing.Role != entity.RoleSuperAdmin {
		if existing, err = accounts.UpdateRole(ctx, existing.ID, entity.RoleSuperAdmin); err != nil {
			return nil, 0, fmt.Errorf("update role: %w", err)
		}
	}
	existing.PasswordHash = hash
	return existing, seedUpdated, nil
}
