package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/internal/domain/repository"
)

var columns = []string{
	"id", "email", "name", "password_hash", "role", "email_verified",
	"verification_token_hash", "verification_token_expires_at",
	"reset_token_hash", "reset_token_expires_at", "created_at", "updated_at",
}

var created = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*AccountRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewAccountRepository(mock), mock
}

func TestCreate_Success(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs("alice@example.com", "Alice", "hash", "STUDENT", false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("a-1", created, created))

	a := &entity.Account{Email: " Alice@Example.com ", Name: "Alice", PasswordHash: "hash", Role: entity.RoleStudent}
	require.NoError(t, r.Create(context.Background(), a))
	assert.Equal(t, "a-1", a.ID)
	assert.Equal(t, "alice@example.com", a.Email)
	assert.Equal(t, created, a.CreatedAt)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs("alice@example.com", "", "hash", "STUDENT", false).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	err := r.Create(context.Background(), &entity.Account{Email: "alice@example.com", PasswordHash: "hash", Role: entity.RoleStudent})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestCreate_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	err := r.Create(context.Background(), &entity.Account{Email: "a@example.com", Role: entity.RoleStudent})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
}

func TestGetByEmail_Found(t *testing.T) {
	r, mock := newRepoWithMock(t)
	exp := created.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE email = \$1`).
		WithArgs("bob@example.com").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			"b-1", "bob@example.com", "Bob", "hash", "ADMIN", false,
			pgtype.Text{String: "digest", Valid: true}, pgtype.Timestamptz{Time: exp, Valid: true},
			nil, nil, created, created,
		))

	a, err := r.GetByEmail(context.Background(), "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, a.Role)
	assert.Equal(t, "digest", a.VerificationTokenHash)
	require.NotNil(t, a.VerificationTokenExpiresAt)
	assert.True(t, exp.Equal(*a.VerificationTokenExpiresAt))
	assert.Empty(t, a.ResetTokenHash)
	assert.Nil(t, a.ResetTokenExpiresAt)
}

func TestGetByID_NotFound(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := r.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetByID_UnknownRole(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
		WithArgs("x").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			"x", "x@example.com", "", "hash", "OWNER", true, nil, nil, nil, nil, created, created,
		))

	_, err := r.GetByID(context.Background(), "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestSetToken(t *testing.T) {
	r, mock := newRepoWithMock(t)
	exp := created.Add(time.Hour)

	mock.ExpectExec(`UPDATE accounts SET reset_token_hash = \$2, reset_token_expires_at = \$3`).
		WithArgs("a-1", "digest", exp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE accounts SET verification_token_hash = \$2`).
		WithArgs("missing", "digest", exp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, r.SetToken(context.Background(), "a-1", entity.PurposeReset, "digest", exp))
	assert.ErrorIs(t, r.SetToken(context.Background(), "missing", entity.PurposeVerify, "digest", exp), repository.ErrNotFound)
	assert.Error(t, r.SetToken(context.Background(), "a-1", entity.TokenPurpose(0), "digest", exp))
}

func TestConsumeToken_Verify(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := created.Add(time.Minute)

	mock.ExpectQuery(`UPDATE accounts\s+SET email_verified = TRUE, verification_token_hash = NULL.*WHERE verification_token_hash = \$1 AND verification_token_expires_at > \$2`).
		WithArgs("digest", now).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			"a-1", "alice@example.com", "Alice", "hash", "STUDENT", true, nil, nil, nil, nil, created, now,
		))

	a, err := r.ConsumeToken(context.Background(), entity.TokenConsumption{Purpose: entity.PurposeVerify, TokenHash: "digest", Now: now})
	require.NoError(t, err)
	assert.True(t, a.EmailVerified)
	assert.Empty(t, a.VerificationTokenHash)
}

func TestConsumeToken_ResetNoMatch(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := created

	mock.ExpectQuery(`UPDATE accounts\s+SET password_hash = \$3, reset_token_hash = NULL.*WHERE reset_token_hash = \$1 AND reset_token_expires_at > \$2`).
		WithArgs("digest", now, "newhash").
		WillReturnRows(pgxmock.NewRows(columns))

	_, err := r.ConsumeToken(context.Background(), entity.TokenConsumption{Purpose: entity.PurposeReset, TokenHash: "digest", Now: now, NewPasswordHash: "newhash"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConsumeToken_ResetRequiresHash(t *testing.T) {
	r, _ := newRepoWithMock(t)

	_, err := r.ConsumeToken(context.Background(), entity.TokenConsumption{Purpose: entity.PurposeReset, TokenHash: "digest", Now: created})
	assert.Error(t, err)
}

func TestUpdateRole(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE accounts SET role = \$2`).
		WithArgs("a-1", "SUPERADMIN").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			"a-1", "alice@example.com", "Alice", "hash", "SUPERADMIN", true, nil, nil, nil, nil, created, created,
		))

	a, err := r.UpdateRole(context.Background(), "a-1", entity.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleSuperAdmin, a.Role)
}

func TestDelete(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).WithArgs("a-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).WithArgs("a-1").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, r.Delete(context.Background(), "a-1"))
	assert.ErrorIs(t, r.Delete(context.Background(), "a-1"), repository.ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE accounts SET password_hash = \$2`).WithArgs("a-1", "h2").WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, r.UpdatePassword(context.Background(), "a-1", "h2"))
}

func TestList(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM accounts ORDER BY created_at, id LIMIT \$1 OFFSET \$2`).
		WithArgs(2, 0).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("a-1", "a@example.com", "A", "h", "STUDENT", true, nil, nil, nil, nil, created, created).
			AddRow("a-2", "b@example.com", "B", "h", "ADMIN", true, nil, nil, nil, nil, created, created))

	out, err := r.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a-2", out[1].ID)
	assert.Equal(t, entity.RoleAdmin, out[1].Role)
}
