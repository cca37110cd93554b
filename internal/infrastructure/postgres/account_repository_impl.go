package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/internal/domain/repository"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

const accountColumns = `id, email, name, password_hash, role, email_verified,
		verification_token_hash, verification_token_expires_at,
		reset_token_hash, reset_token_expires_at, created_at, updated_at`

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	var (
		a                     entity.Account
		role                  string
		verifyHash, resetHash pgtype.Text
		verifyExp, resetExp   pgtype.Timestamptz
	)
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &role, &a.EmailVerified,
		&verifyHash, &verifyExp, &resetHash, &resetExp, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if a.Role, err = entity.ParseRole(role); err != nil {
		return nil, fmt.Errorf("db error: account %s: %w", a.ID, err)
	}
	a.VerificationTokenHash = verifyHash.String
	a.VerificationTokenExpiresAt = timePtr(verifyExp)
	a.ResetTokenHash = resetHash.String
	a.ResetTokenExpiresAt = timePtr(resetExp)
	return &a, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	a.Email = entity.NormalizeEmail(a.Email)
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (email, name, password_hash, role, email_verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, a.Email, a.Name, a.PasswordHash, a.Role.String(), a.EmailVerified).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, entity.NormalizeEmail(email)))
}

func (r *AccountRepository) SetToken(ctx context.Context, id string, purpose entity.TokenPurpose, tokenHash string, expiresAt time.Time) error {
	var q string
	switch purpose {
	case entity.PurposeVerify:
		q = `UPDATE accounts SET verification_token_hash = $2, verification_token_expires_at = $3, updated_at = now() WHERE id = $1`
	case entity.PurposeReset:
		q = `UPDATE accounts SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = now() WHERE id = $1`
	default:
		return fmt.Errorf("unknown token purpose %s", purpose)
	}
	return r.execOne(ctx, q, id, tokenHash, expiresAt)
}

// ConsumeToken runs a single UPDATE ... RETURNING so that two concurrent
// consumers of the same token cannot both match the row.
func (r *AccountRepository) ConsumeToken(ctx context.Context, in entity.TokenConsumption) (*entity.Account, error) {
	switch in.Purpose {
	case entity.PurposeVerify:
		return scanAccount(r.db.QueryRow(ctx, `
		UPDATE accounts
		SET email_verified = TRUE, verification_token_hash = NULL, verification_token_expires_at = NULL, updated_at = now()
		WHERE verification_token_hash = $1 AND verification_token_expires_at > $2
		RETURNING `+accountColumns, in.TokenHash, in.Now))
	case entity.PurposeReset:
		if in.NewPasswordHash == "" {
			return nil, errors.New("reset consumption requires a password hash")
		}
		return scanAccount(r.db.QueryRow(ctx, `
		UPDATE accounts
		SET password_hash = $3, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $2
		RETURNING `+accountColumns, in.TokenHash, in.Now, in.NewPasswordHash))
	default:
		return nil, fmt.Errorf("unknown token purpose %s", in.Purpose)
	}
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `
		UPDATE accounts SET role = $2, updated_at = now() WHERE id = $1
		RETURNING `+accountColumns, id, role.String()))
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*entity.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []*entity.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *AccountRepository) execOne(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
