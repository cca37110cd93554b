package application

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

// AdminService runs administrative account operations. Every call takes the
// actor resolved by Authorize for the current request.
type AdminService struct {
	Repo   repo.AccountRepository
	Gate   *Gate
	Index  AccountIndex
	Logger *logrus.Logger
}

func NewAdminService(r repo.AccountRepository, gate *Gate, index AccountIndex, logger *logrus.Logger) *AdminService {
	if index == nil {
		index = NoopIndex()
	}
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &AdminService{Repo: r, Gate: gate, Index: index, Logger: logger}
}

// Authorize reloads the session's account and re-applies the gate to the
// stored email and role. Nothing from a previous request is reused.
func (s *AdminService) Authorize(ctx context.Context, sess *Session) (*entity.Account, error) {
	if sess == nil || sess.AccountID == "" {
		return nil, ErrAccessDenied
	}
	a, err := s.Repo.GetByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, storeErr("get by id", err)
	}
	if !s.Gate.Authorize(a.Email, a.Role) {
		return nil, ErrAccessDenied
	}
	return a, nil
}

func (s *AdminService) requireActor(actor *entity.Account) error {
	if actor == nil || !s.Gate.Authorize(actor.Email, actor.Role) {
		return ErrAccessDenied
	}
	return nil
}

func (s *AdminService) ListAccounts(ctx context.Context, actor *entity.Account, limit, offset int) ([]*entity.Account, error) {
	if err := s.requireActor(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	out, err := s.Repo.List(ctx, limit, offset)
	if err != nil {
		return nil, storeErr("list", err)
	}
	return out, nil
}

func (s *AdminService) SearchAccounts(ctx context.Context, actor *entity.Account, q string, size int) ([]AccountHit, error) {
	if err := s.requireActor(actor); err != nil {
		return nil, err
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	return s.Index.Search(ctx, q, size)
}

type CreateAccountInput struct {
	Email    string
	Password string
	Name     string
	Role     entity.Role
}

// CreateAccount creates a verified account with an administrator-supplied
// password and role.
func (s *AdminService) CreateAccount(ctx context.Context, actor *entity.Account, in CreateAccountInput) (*entity.Account, error) {
	if err := s.requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.checkGrant(actor, in.Role); err != nil {
		return nil, err
	}
	email := entity.NormalizeEmail(in.Email)
	if email == "" {
		return nil, NewValidationError("email", "is required")
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, NewValidationError("password", err.Error())
	}
	a := &entity.Account{
		Email:         email,
		Name:          in.Name,
		PasswordHash:  hash,
		Role:          in.Role,
		EmailVerified: true,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrAlreadyExists
		}
		return nil, storeErr("create", err)
	}
	s.audit(actor, "account_create", a.ID)
	s.index(ctx, a)
	return a, nil
}

// UpdateRole changes an account's role. Only a SUPERADMIN may grant or revoke SUPERADMIN.
func (s *AdminService) UpdateRole(ctx context.Context, actor *entity.Account, id string, role entity.Role) (*entity.Account, error) {
	if err := s.requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.checkGrant(actor, role); err != nil {
		return nil, err
	}
	target, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeErr("get by id", err)
	}
	if target.Role == entity.RoleSuperAdmin && actor.Role != entity.RoleSuperAdmin {
		return nil, ErrAccessDenied
	}
	a, err := s.Repo.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeErr("update role", err)
	}
	s.audit(actor, "account_role_update", a.ID)
	s.index(ctx, a)
	return a, nil
}

// DeleteAccount removes an account. Deleting one's own account is always
// rejected, before any other check.
func (s *AdminService) DeleteAccount(ctx context.Context, actor *entity.Account, id string) error {
	if actor != nil && actor.ID == id {
		return ErrSelfDelete
	}
	if err := s.requireActor(actor); err != nil {
		return err
	}
	target, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return storeErr("get by id", err)
	}
	if target.Role == entity.RoleSuperAdmin && actor.Role != entity.RoleSuperAdmin {
		return ErrAccessDenied
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return storeErr("delete", err)
	}
	s.audit(actor, "account_delete", id)
	if err := s.Index.Remove(ctx, id); err != nil {
		s.Logger.WithError(err).WithField("account_id", id).Warn("search index remove failed")
	}
	return nil
}

func (s *AdminService) checkGrant(actor *entity.Account, role entity.Role) error {
	if !role.Valid() {
		names := make([]string, 0, 3)
		for _, r := range entity.Roles() {
			names = append(names, r.String())
		}
		return NewValidationError("role", "must be one of: "+strings.Join(names, ", "))
	}
	if role == entity.RoleSuperAdmin && actor.Role != entity.RoleSuperAdmin {
		return ErrAccessDenied
	}
	return nil
}

func (s *AdminService) index(ctx context.Context, a *entity.Account) {
	if err := s.Index.Index(ctx, a); err != nil {
		s.Logger.WithError(err).WithField("account_id", a.ID).Warn("search index failed")
	}
}

func (s *AdminService) audit(actor *entity.Account, action, targetID string) {
	s.Logger.WithFields(logrus.Fields{
		"actor_id":  actor.ID,
		"action":    action,
		"target_id": targetID,
	}).Info("admin action")
}
