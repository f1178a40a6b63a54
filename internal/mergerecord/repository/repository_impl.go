package repository

import (
	"context"

	mergerecorddomain "github.com/smallbiznis/mergematrix/internal/mergerecord/domain"
	"github.com/smallbiznis/mergematrix/internal/storage"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func NewSQL(conn *gorm.DB) mergerecorddomain.Repository {
	return &repo{db: conn}
}

func (r *repo) Backend() string { return storage.BackendSQL }

func (r *repo) Insert(ctx context.Context, record *mergerecorddomain.MergeRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repo) ListByOwner(ctx context.Context, filter mergerecorddomain.OwnerFilter, limit int) ([]mergerecorddomain.MergeRecord, error) {
	stmt := r.db.WithContext(ctx).Model(&mergerecorddomain.MergeRecord{})
	if filter.UserID != "" {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	} else {
		stmt = stmt.Where("user_email = ?", filter.UserEmail)
	}

	records := make([]mergerecorddomain.MergeRecord, 0, limit)
	err := stmt.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
