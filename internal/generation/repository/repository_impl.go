package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	generationdomain "github.com/smallbiznis/mergematrix/internal/generation/domain"
	"github.com/smallbiznis/mergematrix/internal/storage"
	"github.com/smallbiznis/mergematrix/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func NewSQL(conn *gorm.DB) generationdomain.Repository {
	return &repo{db: conn}
}

func (r *repo) Backend() string { return storage.BackendSQL }

func (r *repo) FindByIdentity(ctx context.Context, identity string) (*generationdomain.UsageAccount, error) {
	var account generationdomain.UsageAccount
	err := r.db.WithContext(ctx).
		Where("identity = ?", identity).
		Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) EnsureAccount(ctx context.Context, account *generationdomain.UsageAccount) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity"}},
			DoNothing: true,
		}).
		Create(account).Error
	if db.IsDuplicateKeyErr(err) {
		return nil
	}
	return err
}

func (r *repo) IncrementWithinLimit(ctx context.Context, identity string, at time.Time) (*generationdomain.UsageAccount, bool, error) {
	var (
		account  generationdomain.UsageAccount
		admitted bool
	)

	condition, args := belowLimitCondition()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&generationdomain.UsageAccount{}).
			Where("identity = ?", identity).
			Where(condition, args...).
			UpdateColumns(map[string]any{
				"generations":        gorm.Expr("generations + 1"),
				"last_generation_at": at,
				"updated_at":         at,
			})
		if res.Error != nil {
			return res.Error
		}
		admitted = res.RowsAffected == 1

		return tx.Where("identity = ?", identity).Take(&account).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &account, admitted, nil
}

func (r *repo) SetPremium(ctx context.Context, identity string, premium bool, at time.Time) (*generationdomain.UsageAccount, error) {
	var account generationdomain.UsageAccount
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&generationdomain.UsageAccount{}).
			Where("identity = ?", identity).
			UpdateColumns(map[string]any{
				"is_premium": premium,
				"updated_at": at,
			}).Error; err != nil {
			return err
		}
		return tx.Where("identity = ?", identity).Take(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// belowLimitCondition renders the tier table as
// ((is_premium = ? AND generations < ?) OR ...).
func belowLimitCondition() (string, []any) {
	tiers := generationdomain.Tiers()
	parts := make([]string, 0, len(tiers))
	args := make([]any, 0, len(tiers)*2)
	for _, tier := range tiers {
		parts = append(parts, "(is_premium = ? AND generations < ?)")
		args = append(args, tier.Premium(), generationdomain.LimitFor(tier))
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
