package extract

import (
	"errors"
	"mime"
	"net/http"
	"strings"
)

var errUnsupported = errors.New("unsupported content type")

const (
	mediaDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mediaXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// decoder turns a response body into raw text. contentType is the full
// header value, parameters included.
type decoder func(content []byte, contentType string) (string, error)

// bodyOnly adapts a decoder that does not look at the content type.
func bodyOnly(f func([]byte) (string, error)) decoder {
	return func(content []byte, _ string) (string, error) { return f(content) }
}

var decoders = map[string]decoder{
	"text/html":             decodeHTML,
	"application/xhtml+xml": decodeHTML,
	"text/plain":            bodyOnly(decodePlain),
	"text/markdown":         bodyOnly(decodePlain),
	"application/pdf":       bodyOnly(decodePDF),
	mediaDOCX:               bodyOnly(decodeDOCX),
	mediaXLSX:               bodyOnly(decodeXLSX),
}

// ExtractBytes decodes a response body by its Content-Type header value and
// returns normalized text. An empty or generic type is sniffed from the body.
func ExtractBytes(content []byte, contentType string) (string, error) {
	media := mediaType(contentType)
	if media == "" || media == "application/octet-stream" {
		// the sniffed charset is always utf-8, so leave it to the decoder
		media = mediaType(http.DetectContentType(content))
		contentType = media
	}
	dec, ok := decoders[media]
	if !ok {
		return "", errUnsupported
	}
	raw, err := dec(content, contentType)
	if err != nil {
		return "", err
	}
	return Normalize(raw), nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return media
}
