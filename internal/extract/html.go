package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// blockElements end a line of visible text.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Title: true, atom.Section: true, atom.Article: true, atom.Header: true,
	atom.Footer: true, atom.Nav: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
	atom.Blockquote: true, atom.Pre: true, atom.Td: true, atom.Th: true,
}

// rawTextElements switch the tokenizer to raw text until their end tag, even
// when written self-closing.
var rawTextElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Iframe: true, atom.Noembed: true, atom.Noframes: true,
}

func skipped(a atom.Atom) bool {
	return rawTextElements[a] || a == atom.Template
}

// decodeHTML returns the text nodes of a document, skipping script, style and
// other non-rendered subtrees and breaking lines at block elements. The body
// is converted to UTF-8 from the charset named by contentType or by the
// document itself.
func decodeHTML(content []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(content), contentType)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	z := html.NewTokenizer(r)
	var b strings.Builder
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("parse HTML: %w", err)
			}
			return strings.ToValidUTF8(b.String(), "\uFFFD"), nil
		case html.StartTagToken:
			tok := z.Token()
			if skipped(tok.DataAtom) {
				skipDepth++
				continue
			}
			if blockElements[tok.DataAtom] {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			tok := z.Token()
			if rawTextElements[tok.DataAtom] {
				skipDepth++
				continue
			}
			if blockElements[tok.DataAtom] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			tok := z.Token()
			if skipped(tok.DataAtom) {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if blockElements[tok.DataAtom] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}
