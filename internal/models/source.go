package models

// SourceModel is the origin of ingested content: a webpage, a watched file,
// an audio recording, or manual input.
type SourceModel struct {
	Base
	Type         string `json:"type"          gorm:"index;not null"`
	URL          string `json:"url,omitempty" gorm:"index"` // for watched files this is the absolute path
	Title        string `json:"title,omitempty"`
	OriginalPath string `json:"original_path,omitempty"`
}

func (SourceModel) TableName() string { return "sources" }

// Source type values written by the built-in producers. The column is
// free-form so new producers need no schema change.
const (
	SourceTypeManualText = "manual_text"
	SourceTypeWebpage    = "webpage"
	SourceTypeMarkdown   = "markdown"
	SourceTypeTextFile   = "textfile"
	SourceTypePDF        = "pdf"
	SourceTypeAudio      = "audio"
)
