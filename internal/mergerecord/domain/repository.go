package domain

import "context"

// OwnerFilter is a resolved OwnerQuery: exactly one key is set.
type OwnerFilter struct {
	UserID    string
	UserEmail string
}

type Repository interface {
	Backend() string
	Insert(ctx context.Context, record *MergeRecord) error
	// ListByOwner returns records newest first, ties broken by id.
	ListByOwner(ctx context.Context, filter OwnerFilter, limit int) ([]MergeRecord, error)
}
