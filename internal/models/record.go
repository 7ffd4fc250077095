// Package models defines core data structures for records, queries, results and errors.
package models

import "time"

// Category is a topic label from the classifier's closed set.
type Category string

// DistanceCosine is the only distance a collection is created with.
const DistanceCosine = "cosine"

// Record is a stored page: its embedding plus the URL and category it was ingested with.
// Records are immutable once written.
type Record struct {
	ID        string    `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	Category  Category  `json:"category" db:"category"`
	Vector    []float32 `json:"-" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SearchHit is a record with its similarity to a query vector.
type SearchHit struct {
	Record *Record
	Score  float64
}

// Collection describes a named set of records sharing one vector dimension.
type Collection struct {
	Name       string    `json:"name" db:"name"`
	Dimensions int       `json:"dimensions" db:"dimensions"`
	Distance   string    `json:"distance" db:"distance"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
