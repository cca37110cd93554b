package application

import (
	"context"

	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
)

// AccountIndex mirrors accounts into a search engine for the admin console.
// Indexing is best effort; the account store stays the source of truth.
type AccountIndex interface {
	Index(ctx context.Context, a *entity.Account) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]AccountHit, error)
}

// AccountHit is one search result. It never carries credential material.
type AccountHit struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}

type noopIndex struct{}

func (noopIndex) Index(context.Context, *entity.Account) error { return nil }
func (noopIndex) Remove(context.Context, string) error         { return nil }
func (noopIndex) Search(context.Context, string, int) ([]AccountHit, error) {
	return []AccountHit{}, nil
}

// NoopIndex is used when no search engine is configured.
func NoopIndex() AccountIndex { return noopIndex{} }
