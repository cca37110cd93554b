package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified is deliberately distinguishable from ErrInvalidCredentials.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidToken covers missing, consumed and expired tokens alike.
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrAccessDenied    = errors.New("access denied")
	ErrAlreadyExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrSelfDelete      = errors.New("cannot delete own account")
)

// ValidationError carries field-level problems with the caller's input.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DeliveryError reports that the notifier could not hand off an email.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string { return fmt.Sprintf("email delivery failed: %v", e.Err) }
func (e *DeliveryError) Unwrap() error { return e.Err }

// StoreError wraps an unexpected account store failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
