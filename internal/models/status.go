package models

// Status summarizes the running store for the status endpoint and command.
type Status struct {
	Collection     string `json:"collection"`
	Records        int64  `json:"records"`
	Dimensions     int    `json:"dimensions"`
	Distance       string `json:"distance"`
	Backend        string `json:"backend"`
	DedupMode      string `json:"dedup_mode"`
	CacheEntries   int    `json:"cache_entries"`
	TextIndexDocs  uint64 `json:"text_index_docs"`
	DiskUsageBytes int64  `json:"disk_usage_bytes,omitempty"`
}
