package item

// ListQuery holds the sort controls for listing content items. Pagination
// itself comes from the shared pagination helpers.
type ListQuery struct {
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	SourceID  string `form:"source_id"`
	Processed *bool  `form:"processed"`
}
