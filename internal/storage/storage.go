// Package storage holds the error and timeout conventions shared by every
// repository backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	BackendSQL   = "sql"
	BackendMongo = "mongodb"

	DefaultTimeout = 5 * time.Second
)

// ErrUnavailable marks a store call that failed or timed out. The operation
// had no effect.
var ErrUnavailable = errors.New("storage_unavailable")

// WithTimeout bounds a single store call.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Wrap marks err as ErrUnavailable while keeping the cause inspectable.
func Wrap(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
