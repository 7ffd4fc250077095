// Package queue moves URLs to ingest through Kafka.
package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

type urlMessage struct {
	URL string `json:"url"`
}

// DecodeURL reads a queued URL. The value is either the bare URL or a JSON
// object {"url": "..."}. Only absolute http and https URLs are accepted.
func DecodeURL(value []byte) (string, error) {
	value = bytes.TrimSpace(value)
	raw := string(value)
	if bytes.HasPrefix(value, []byte("{")) {
		var m urlMessage
		if err := json.Unmarshal(value, &m); err != nil {
			return "", fmt.Errorf("decode message: %w", err)
		}
		raw = strings.TrimSpace(m.URL)
	}
	if raw == "" {
		return "", fmt.Errorf("message has no url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("not an http(s) url: %q", raw)
	}
	return raw, nil
}
