// Package domain contains the append-only merge history model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// MergeRecord describes one completed client-side merge.
type MergeRecord struct {
	ID          snowflake.ID                    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	UserID      string                          `json:"userId" gorm:"type:varchar(255);not null;index:ix_merge_records_user_id_created,priority:1"`
	UserEmail   string                          `json:"userEmail" gorm:"type:varchar(320);not null;index:ix_merge_records_user_email_created,priority:1"`
	FileName    string                          `json:"fileName" gorm:"type:text;not null"`
	FileSize    int64                           `json:"fileSize" gorm:"not null"`
	MergedFiles datatypes.JSONSlice[SourceFile] `json:"mergedFiles" gorm:"not null"`
	Settings    datatypes.JSONType[Settings]    `json:"settings"`
	CreatedAt   time.Time                       `json:"createdAt" gorm:"not null;index:ix_merge_records_user_id_created,priority:2,sort:desc;index:ix_merge_records_user_email_created,priority:2,sort:desc"`
}

// TableName sets the database table name.
func (MergeRecord) TableName() string { return "merge_records" }

// SourceFile is one merge input, in merge order.
type SourceFile struct {
	Name string `json:"name" bson:"name"`
	Size int64  `json:"size" bson:"size"`
}

// Settings is stored verbatim. Recognized values are quality low|medium|high,
// orientation portrait|landscape and compression none|low|high.
type Settings struct {
	Quality     string `json:"quality,omitempty" bson:"quality,omitempty"`
	Orientation string `json:"orientation,omitempty" bson:"orientation,omitempty"`
	Compression string `json:"compression,omitempty" bson:"compression,omitempty"`
}
