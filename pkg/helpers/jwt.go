package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for every credential that cannot be trusted:
// bad signature, wrong algorithm, truncated, expired or missing claims.
var ErrInvalidSession = errors.New("invalid session")

// Audiences keep general and admin credentials apart, so each is only
// accepted by its own routes and keeps its own lifetime.
const (
	AudienceSession = "session"
	AudienceAdmin   = "admin"
)

// JWTManager signs and verifies stateless session credentials.
type JWTManager struct {
	Secret []byte
	Now    func() time.Time
}

func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{Secret: []byte(secret), Now: time.Now}
}

// SessionClaims carries exactly the identity claims of a session: subject
// (account id), email and role, plus issue and expiry times.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (m *JWTManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Issue signs a credential for the account, bound to audience and valid for ttl.
func (m *JWTManager) Issue(subject, email, role, audience string, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := &SessionClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

// Decode verifies signature, expiry and audience and returns the claims.
func (m *JWTManager) Decode(tokenStr, audience string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" || claims.Email == "" || claims.Role == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
