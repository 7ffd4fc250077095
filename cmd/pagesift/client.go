package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/pagesift/internal/keyword"
	"github.com/hyperjump/pagesift/internal/models"
)

var httpClient = &http.Client{Timeout: 5 * time.Minute}

// doJSON sends body (when non-nil) as JSON and decodes a response with
// status want into out.
func doJSON(method, endpoint string, body interface{}, want int, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, endpoint, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiURL(serverURL, path string) string {
	return strings.TrimRight(serverURL, "/") + "/api/v1" + path
}

func ingestViaHTTP(serverURL string, urls []string) ([]*models.IngestResult, error) {
	var results []*models.IngestResult
	err := doJSON(http.MethodPost, apiURL(serverURL, "/scrape"), &models.IngestRequest{URLs: urls}, http.StatusOK, &results)
	return results, err
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) ([]*models.SearchResult, error) {
	var results []*models.SearchResult
	err := doJSON(http.MethodPost, apiURL(serverURL, "/search"), query, http.StatusOK, &results)
	return results, err
}

func pageSearchViaHTTP(serverURL, query string, limit int, opts *keyword.SearchOptions) ([]*models.PageHit, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("limit", strconv.Itoa(limit))
	if opts.Category != "" {
		v.Set("category", string(opts.Category))
	}
	if opts.FuzzyEnabled {
		v.Set("fuzzy", "true")
	}
	var hits []*models.PageHit
	err := doJSON(http.MethodGet, apiURL(serverURL, "/pages/search?"+v.Encode()), nil, http.StatusOK, &hits)
	return hits, err
}

func statusViaHTTP(serverURL string) (*models.Status, error) {
	var st models.Status
	if err := doJSON(http.MethodGet, apiURL(serverURL, "/status"), nil, http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func watchListViaHTTP(serverURL string) ([]string, error) {
	var body struct {
		Directories []string `json:"directories"`
	}
	if err := doJSON(http.MethodGet, apiURL(serverURL, "/watch/directories"), nil, http.StatusOK, &body); err != nil {
		return nil, err
	}
	return body.Directories, nil
}

func watchAddViaHTTP(serverURL, path string) error {
	body := map[string]interface{}{"path": path, "sync": true}
	return doJSON(http.MethodPost, apiURL(serverURL, "/watch/directories"), body, http.StatusCreated, nil)
}

func watchRemoveViaHTTP(serverURL, path string) error {
	endpoint := apiURL(serverURL, "/watch/directories?path="+url.QueryEscape(path))
	return doJSON(http.MethodDelete, endpoint, nil, http.StatusOK, nil)
}
