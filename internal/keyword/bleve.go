package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/pagesift/internal/models"
)

// PageIndex implements Index using Bleve.
type PageIndex struct {
	index bleve.Index
}

type pageDoc struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

func pageMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so exact words match
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textField)

	urlField := bleve.NewTextFieldMapping()
	urlField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("url", urlField)

	categoryField := bleve.NewTextFieldMapping()
	categoryField.Analyzer = keywordanalyzer.Name
	docMapping.AddFieldMappingsAt("category", categoryField)

	im.AddDocumentMapping("page", docMapping)
	im.DefaultType = "page"
	im.DefaultMapping = docMapping
	return im
}

// NewPageIndex creates or opens a Bleve index at path. An empty path keeps the
// index in memory.
func NewPageIndex(path string) (*PageIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(pageMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &PageIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &PageIndex{index: index}, nil
	}

	index, err := bleve.New(path, pageMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &PageIndex{index: index}, nil
}

// Index stores the page text under the record id.
func (p *PageIndex) Index(ctx context.Context, id, url string, category models.Category, text string) error {
	return p.index.Index(id, pageDoc{URL: url, Category: string(category), Content: text})
}

// Search runs a match query over content and URL and returns up to limit hits.
func (p *PageIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*models.PageHit, error) {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return []*models.PageHit{}, nil
	}
	if opts == nil {
		opts = &SearchOptions{}
	}

	content := p.fieldQuery(query, "content", opts)
	var q blevequery.Query = content
	if opts.URLBoost > 1 {
		url := p.fieldQuery(query, "url", opts)
		url.(blevequery.BoostableQuery).SetBoost(opts.URLBoost)
		q = bleve.NewDisjunctionQuery(content, url)
	}
	if opts.Category != "" {
		tq := bleve.NewTermQuery(string(opts.Category))
		tq.SetField("category")
		q = bleve.NewConjunctionQuery(q, tq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"url", "category"}
	results, err := p.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*models.PageHit, len(results.Hits))
	for i, hit := range results.Hits {
		url, _ := hit.Fields["url"].(string)
		category, _ := hit.Fields["category"].(string)
		out[i] = &models.PageHit{ID: hit.ID, URL: url, Category: models.Category(category), Score: hit.Score}
	}
	return out, nil
}

// fieldQuery builds a match query, or a disjunction of fuzzy term queries
// when fuzzy matching is enabled.
func (p *PageIndex) fieldQuery(query, field string, opts *SearchOptions) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	if !opts.FuzzyEnabled || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		return mq
	}
	fuzziness := opts.Fuzziness
	if fuzziness <= 0 {
		fuzziness = 1
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DocCount returns the number of indexed pages.
func (p *PageIndex) DocCount() (uint64, error) {
	return p.index.DocCount()
}

// Close closes the Bleve index.
func (p *PageIndex) Close() error {
	return p.index.Close()
}
