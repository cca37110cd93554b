package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

// dummyHash is compared against when the email is unknown, so that an unknown
// email costs the same bcrypt work as a wrong password.
var dummyHash, _ = helpers.HashPassword("identity-core-timing-equalizer")

// AuthOptions carries the configuration data of the authenticator.
type AuthOptions struct {
	SessionTTL         time.Duration
	AdminSessionTTL    time.Duration
	VerifyExemptEmails []string
}

// AuthService implements registration, login, verification and password reset.
type AuthService struct {
	Repo     repo.AccountRepository
	Tokens   *TokenIssuer
	Sessions *helpers.JWTManager
	Gate     *Gate
	Notifier Notifier
	Index    AccountIndex
	Logger   *logrus.Logger

	sessionTTL      time.Duration
	adminSessionTTL time.Duration
	exempt          emailSet
}

func NewAuthService(r repo.AccountRepository, tokens *TokenIssuer, sessions *helpers.JWTManager, gate *Gate, notifier Notifier, logger *logrus.Logger, opts AuthOptions) *AuthService {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &AuthService{
		Repo:            r,
		Tokens:          tokens,
		Sessions:        sessions,
		Gate:            gate,
		Notifier:        notifier,
		Index:           NoopIndex(),
		Logger:          logger,
		sessionTTL:      opts.SessionTTL,
		adminSessionTTL: opts.AdminSessionTTL,
		exempt:          newEmailSet(opts.VerifyExemptEmails),
	}
}

// WithIndex mirrors registered and verified accounts into idx.
func (s *AuthService) WithIndex(idx AccountIndex) *AuthService {
	if idx != nil {
		s.Index = idx
	}
	return s
}

func (s *AuthService) index(ctx context.Context, a *entity.Account) {
	if err := s.Index.Index(ctx, a); err != nil {
		s.Logger.WithError(err).WithField("account_id", a.ID).Warn("search index failed")
	}
}

// Session is a signed credential plus the identity it was minted for.
type Session struct {
	Token     string
	ExpiresAt time.Time
	AccountID string
	Email     string
	Role      entity.Role
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// RegisterResult reports the created account. DeliveryErr is set when the
// verification email could not be handed off; the account exists regardless.
type RegisterResult struct {
	Account     *entity.Account
	DeliveryErr error
}

// Register creates an unverified STUDENT account and sends its verification token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	email := entity.NormalizeEmail(in.Email)
	if email == "" {
		return RegisterResult{}, NewValidationError("email", "is required")
	}
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return RegisterResult{}, ErrAlreadyExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return RegisterResult{}, storeErr("get by email", err)
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, NewValidationError("password", err.Error())
	}
	a := &entity.Account{
		Email:        email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         entity.RoleStudent,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return RegisterResult{}, ErrAlreadyExists
		}
		return RegisterResult{}, storeErr("create", err)
	}

	res := RegisterResult{Account: a}
	s.index(ctx, a)
	tok, err := s.Tokens.Issue(ctx, a.ID, entity.PurposeVerify)
	if err != nil {
		return res, err
	}
	a.VerificationTokenHash = helpers.TokenDigest(tok.Token)
	a.VerificationTokenExpiresAt = &tok.ExpiresAt

	if err := s.Notifier.SendVerificationEmail(ctx, a.Email, a.Name, tok.Token); err != nil {
		s.Logger.WithError(err).WithField("account_id", a.ID).Warn("verification email not sent after registration")
		res.DeliveryErr = &DeliveryError{Err: err}
	}
	return res, nil
}

// Login authenticates on the general path. It never grants admin authority.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	a, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issueSession(a, helpers.AudienceSession, s.sessionTTL)
}

// AdminLogin authenticates and additionally requires the RBAC gate.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	a, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !s.Gate.Authorize(a.Email, a.Role) {
		s.Logger.WithField("account_id", a.ID).Warn("admin login denied by rbac gate")
		return nil, ErrAccessDenied
	}
	return s.issueSession(a, helpers.AudienceAdmin, s.adminSessionTTL)
}

// authenticate applies the fixed order: lookup, verification state, password.
func (s *AuthService) authenticate(ctx context.Context, email, password string) (*entity.Account, error) {
	a, err := s.Repo.GetByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			helpers.CompareHashAndPassword(dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr("get by email", err)
	}
	if !a.EmailVerified && !s.exempt.has(a.Email) {
		return nil, ErrEmailNotVerified
	}
	if !helpers.CompareHashAndPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

func (s *AuthService) issueSession(a *entity.Account, audience string, ttl time.Duration) (*Session, error) {
	tok, exp, err := s.Sessions.Issue(a.ID, a.Email, a.Role.String(), audience, ttl)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, ExpiresAt: exp, AccountID: a.ID, Email: a.Email, Role: a.Role}, nil
}

// DecodeSession validates a general session credential and parses its claims.
func (s *AuthService) DecodeSession(token string) (*Session, error) {
	return s.decode(token, helpers.AudienceSession)
}

// DecodeAdminSession accepts only credentials minted by AdminLogin.
func (s *AuthService) DecodeAdminSession(token string) (*Session, error) {
	return s.decode(token, helpers.AudienceAdmin)
}

func (s *AuthService) decode(token, audience string) (*Session, error) {
	claims, err := s.Sessions.Decode(token, audience)
	if err != nil {
		return nil, err
	}
	role, err := entity.ParseRole(claims.Role)
	if err != nil {
		return nil, helpers.ErrInvalidSession
	}
	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		AccountID: claims.Subject,
		Email:     claims.Email,
		Role:      role,
	}, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*entity.Account, error) {
	a, err := s.Tokens.Consume(ctx, entity.PurposeVerify, token, "")
	if err != nil {
		return nil, err
	}
	s.index(ctx, a)
	return a, nil
}

// ResendVerification answers identically whether or not the email exists or
// is already verified. Only a failed hand-off to the notifier is reported.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	a, err := s.lookupForNotice(ctx, email)
	if err != nil || a == nil || a.EmailVerified {
		return err
	}
	tok, err := s.Tokens.Issue(ctx, a.ID, entity.PurposeVerify)
	if err != nil {
		return err
	}
	if err := s.Notifier.SendVerificationEmail(ctx, a.Email, a.Name, tok.Token); err != nil {
		s.Logger.WithError(err).WithField("account_id", a.ID).Error("resend verification email failed")
		return &DeliveryError{Err: err}
	}
	return nil
}

// ForgotPassword issues a reset token for a known account. Unknown emails are
// a silent no-op.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	a, err := s.lookupForNotice(ctx, email)
	if err != nil || a == nil {
		return err
	}
	tok, err := s.Tokens.Issue(ctx, a.ID, entity.PurposeReset)
	if err != nil {
		return err
	}
	if err := s.Notifier.SendPasswordResetEmail(ctx, a.Email, a.Name, tok.Token); err != nil {
		s.Logger.WithError(err).WithField("account_id", a.ID).Error("password reset email failed")
		return &DeliveryError{Err: err}
	}
	return nil
}

// lookupForNotice returns nil, nil for an unknown email.
func (s *AuthService) lookupForNotice(ctx context.Context, email string) (*entity.Account, error) {
	a, err := s.Repo.GetByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, storeErr("get by email", err)
	}
	return a, nil
}

// ResetPassword consumes a reset token and replaces the password in one step.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidToken
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return NewValidationError("new_password", err.Error())
	}
	a, err := s.Tokens.Consume(ctx, entity.PurposeReset, token, hash)
	if err != nil {
		return err
	}
	s.Logger.WithField("account_id", a.ID).Info("password reset")
	return nil
}
