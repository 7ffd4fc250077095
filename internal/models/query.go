package models

import "fmt"

// DefaultSearchLimit is used when a query does not set a limit.
const DefaultSearchLimit = 5

// MaxSearchLimit caps the number of results a single query may ask for.
const MaxSearchLimit = 100

// SearchQuery is a retrieval request. A nil Limit means DefaultSearchLimit;
// an explicit zero is valid and yields no results.
type SearchQuery struct {
	Text  string `json:"text"`
	Limit *int   `json:"limit,omitempty"`
}

// Validate rejects empty text and negative limits, and returns the effective limit.
func (q *SearchQuery) Validate() (int, error) {
	if q.Text == "" {
		return 0, fmt.Errorf("text cannot be empty")
	}
	if q.Limit == nil {
		return DefaultSearchLimit, nil
	}
	limit := *q.Limit
	if limit < 0 {
		return 0, fmt.Errorf("limit cannot be negative")
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return limit, nil
}

// IngestRequest is a batch of URLs to ingest.
type IngestRequest struct {
	URLs []string `json:"urls"`
}

// Validate ensures the request carries at least one URL.
func (r *IngestRequest) Validate() error {
	if len(r.URLs) == 0 {
		return fmt.Errorf("urls cannot be empty")
	}
	return nil
}
