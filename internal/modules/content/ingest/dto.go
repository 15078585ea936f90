package ingest

// IngestTextDTO is the request body for ingesting raw text.
type IngestTextDTO struct {
	Text        string                 `json:"text"         binding:"required"`
	SourceType  string                 `json:"source_type"`
	SourceTitle string                 `json:"source_title"`
	SourceURL   string                 `json:"source_url"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// IngestWebpageDTO is the request body for ingesting a webpage. Text may be
// omitted, in which case the server fetches and extracts the page itself.
type IngestWebpageDTO struct {
	Text        string                 `json:"text"`
	SourceURL   string                 `json:"source_url" binding:"required"`
	SourceTitle string                 `json:"source_title"`
	Metadata    map[string]interface{} `json:"metadata"`
}
