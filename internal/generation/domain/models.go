// Package domain contains the usage ledger model and quota policy.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageAccount tracks admitted generations for one identity.
type UsageAccount struct {
	ID               snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Identity         string       `gorm:"type:varchar(320);not null;uniqueIndex:ux_usage_accounts_identity"`
	Generations      int          `gorm:"not null"`
	IsPremium        bool         `gorm:"not null"`
	LastGenerationAt *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (UsageAccount) TableName() string { return "usage_accounts" }

// Status returns the caller-facing view of the account.
func (a *UsageAccount) Status() Status {
	if a == nil {
		return Status{}
	}
	return Status{Generations: a.Generations, IsPremium: a.IsPremium}
}
