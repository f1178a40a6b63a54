package domain

import (
	"context"
	"time"
)

type Repository interface {
	Backend() string
	// FindByIdentity returns nil when no account exists.
	FindByIdentity(ctx context.Context, identity string) (*UsageAccount, error)
	// EnsureAccount inserts the account unless one already exists for its identity.
	EnsureAccount(ctx context.Context, account *UsageAccount) error
	// IncrementWithinLimit atomically admits one generation if the account is
	// below its tier limit. It always returns the current account.
	IncrementWithinLimit(ctx context.Context, identity string, at time.Time) (*UsageAccount, bool, error)
	SetPremium(ctx context.Context, identity string, premium bool, at time.Time) (*UsageAccount, error)
}
