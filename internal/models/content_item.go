package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContentItemModel is one ingested piece of text. ContentHash dedups repeat
// ingestion; ProcessedAt stays nil until the embedding landed in the vector
// index, which makes failed embeds discoverable for backfill.
type ContentItemModel struct {
	Base
	TextContent string         `json:"text_content" gorm:"type:longtext;not null"`
	ContentHash string         `json:"content_hash" gorm:"type:char(64);uniqueIndex;not null"`
	Metadata    datatypes.JSON `json:"metadata,omitempty" gorm:"type:json"`
	SourceID    string         `json:"source_id"    gorm:"type:char(36);index;not null"`
	ProcessedAt *time.Time     `json:"processed_at" gorm:"index"`

	Source    *SourceModel  `json:"source,omitempty"     gorm:"foreignKey:SourceID"`
	AISummary *SummaryModel `json:"ai_summary,omitempty" gorm:"foreignKey:ContentItemID"`
}

func (ContentItemModel) TableName() string { return "content_items" }
