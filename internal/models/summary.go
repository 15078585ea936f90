package models

// SummaryModel caches the generated summary of one content item. The unique
// index on ContentItemID enforces the one-to-one relation and makes repeat
// summarize calls idempotent at the schema level.
type SummaryModel struct {
	Base
	SummaryText   string `json:"summary_text"   gorm:"type:text;not null"`
	ModelUsed     string `json:"model_used,omitempty"`
	Type          string `json:"type"           gorm:"index;default:'manual'"`
	ContentItemID string `json:"content_item_id" gorm:"type:char(36);uniqueIndex;not null"`
}

func (SummaryModel) TableName() string { return "summaries" }

const (
	SummaryTypeManual      = "manual"
	SummaryTypeAIGenerated = "ai_generated_item_summary"
)
