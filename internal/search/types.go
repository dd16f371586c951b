package search

// Response is the JSON shape returned by the search endpoint and stored in
// the query cache. Records carries only the configured display fields,
// resolved from matched IDs in ascending ID (corpus) order.
type Response struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Records   []ResultRecord `json:"records"`
}

// ResultRecord is one matched corpus row.
type ResultRecord struct {
	ID     int               `json:"id"`
	Fields map[string]string `json:"fields"`
}
