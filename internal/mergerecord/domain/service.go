package domain

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/smallbiznis/mergematrix/internal/storage"
)

// HistoryLimit caps ListByOwner results.
const HistoryLimit = 10

type Service interface {
	Append(ctx context.Context, req CreateRequest) (*MergeRecord, error)
	ListByOwner(ctx context.Context, query OwnerQuery) ([]MergeRecord, error)
	ExportHistory(ctx context.Context, query OwnerQuery) (*HistoryExport, error)
}

type CreateRequest struct {
	UserID      string       `json:"userId"`
	UserEmail   string       `json:"userEmail"`
	FileName    string       `json:"fileName"`
	FileSize    *int64       `json:"fileSize"`
	MergedFiles []SourceFile `json:"mergedFiles"`
	Settings    Settings     `json:"settings"`
}

// OwnerQuery selects records by caller id or identity. UserID wins when both
// are set.
type OwnerQuery struct {
	UserID    string `form:"userId"`
	UserEmail string `form:"userEmail"`
}

type HistoryExport struct {
	FileName string
	Content  io.Reader
}

var (
	ErrMissingField       = errors.New("missing_field")
	ErrInvalidFileSize    = errors.New("invalid_file_size")
	ErrInvalidQuery       = errors.New("invalid_query")
	ErrStorageUnavailable = storage.ErrUnavailable
)

// MissingFieldError names the first required field that was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }
