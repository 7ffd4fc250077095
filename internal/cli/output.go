// Package cli provides output formatting for the pagesift command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteIngestResults writes per-URL ingest results to w in the given format.
func WriteIngestResults(w io.Writer, results []*models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
			fmt.Fprintf(w, "FAIL  %s\n      %s\n", r.URL, r.Error)
			continue
		}
		fmt.Fprintf(w, "OK    %s\n      %s  %s\n", r.URL, r.Category, r.RecordID)
	}
	fmt.Fprintf(w, "\n%d ingested, %d failed\n", len(results)-failed, failed)
	return nil
}

// WriteSearchResults writes retrieval results to w in the given format.
func WriteSearchResults(w io.Writer, query string, results []*models.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(results), utils.Truncate(query, 60))
	for i, r := range results {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s\n", i+1, r.Score, r.Category)
		fmt.Fprintf(w, "%s\n", r.URL)
	}
	if len(results) > 0 {
		fmt.Fprintln(w)
	}
	return nil
}

// WritePageHits writes keyword search hits to w in the given format.
func WritePageHits(w io.Writer, query string, hits []*models.PageHit, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, hits)
	}
	fmt.Fprintf(w, "\nFound %d pages matching %q\n\n", len(hits), utils.Truncate(query, 60))
	for i, h := range hits {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "[keyword] Rank: %d | Score: %.4f | %s\n", i+1, h.Score, h.Category)
		fmt.Fprintf(w, "%s\nID: %s\n", h.URL, h.ID)
	}
	if len(hits) > 0 {
		fmt.Fprintln(w)
	}
	return nil
}

// WriteStatus writes store status to w in the given format.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Collection:      %s\n", st.Collection)
	fmt.Fprintf(w, "Backend:         %s (dedup: %s)\n", st.Backend, st.DedupMode)
	fmt.Fprintf(w, "Records:         %d\n", st.Records)
	fmt.Fprintf(w, "Dimensions:      %d (%s)\n", st.Dimensions, st.Distance)
	fmt.Fprintf(w, "Text index docs: %d\n", st.TextIndexDocs)
	fmt.Fprintf(w, "Cache entries:   %d\n", st.CacheEntries)
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk usage:      %s\n", FormatBytes(st.DiskUsageBytes))
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
