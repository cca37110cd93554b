package entity

import (
	"fmt"
	"time"
)

// TokenPurpose says why a single-use token was issued.
type TokenPurpose uint8

const (
	PurposeVerify TokenPurpose = iota + 1
	PurposeReset
)

func (p TokenPurpose) String() string {
	switch p {
	case PurposeVerify:
		return "VERIFY"
	case PurposeReset:
		return "RESET"
	default:
		return fmt.Sprintf("TokenPurpose(%d)", uint8(p))
	}
}

func (p TokenPurpose) Valid() bool {
	return p == PurposeVerify || p == PurposeReset
}

// TokenConsumption describes one atomic consume of an outstanding token.
// NewPasswordHash is required for PurposeReset and ignored otherwise.
type TokenConsumption struct {
	Purpose         TokenPurpose
	TokenHash       string
	Now             time.Time
	NewPasswordHash string
}
