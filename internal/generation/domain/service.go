package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/mergematrix/internal/storage"
)

type Service interface {
	GetStatus(ctx context.Context, identity string) (Status, error)
	RecordConsumption(ctx context.Context, identity string) (Status, error)
	SetPremium(ctx context.Context, identity string, premium bool) (Status, error)
}

type Status struct {
	Generations int  `json:"generations"`
	IsPremium   bool `json:"isPremium"`
}

func (s Status) Tier() Tier { return TierOf(s.IsPremium) }

func (s Status) Limit() int { return LimitFor(s.Tier()) }

func (s Status) Remaining() int {
	remaining := s.Limit() - s.Generations
	if remaining < 0 {
		return 0
	}
	return remaining
}

var (
	ErrInvalidIdentity    = errors.New("invalid_identity")
	ErrQuotaExceeded      = errors.New("quota_exceeded")
	ErrStorageUnavailable = storage.ErrUnavailable
)

// QuotaExceededError carries the unchanged status of a denied identity.
type QuotaExceededError struct {
	Status Status
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %d of %d generations used", ErrQuotaExceeded, e.Status.Generations, e.Status.Limit())
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }
