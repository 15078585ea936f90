package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is the base model for all entities. ID is a UUID string so database
// rows and vector-index entries share one identifier space. Deletes are
// hard deletes: a removed item must free its content hash for re-ingestion.
type Base struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"modified"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
