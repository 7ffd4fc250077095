package models

// IngestResult is the per-URL outcome of ingestion. Exactly one of RecordID
// and Error is set.
type IngestResult struct {
	URL      string   `json:"url"`
	Category Category `json:"category,omitempty"`
	RecordID string   `json:"vector_id,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Failed reports whether ingestion of the URL failed.
func (r *IngestResult) Failed() bool {
	return r.Error != ""
}

// SearchResult is a single retrieval hit.
type SearchResult struct {
	URL      string   `json:"url"`
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}

// PageHit is a keyword search hit over ingested page text.
type PageHit struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}
