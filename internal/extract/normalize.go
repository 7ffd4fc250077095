package extract

import (
	"regexp"
	"strings"
)

// spaceRun separates headlines that markup rendered onto one line.
var spaceRun = regexp.MustCompile(` {2,}`)

// Normalize splits text into lines, trims them, splits each line on runs of
// two or more spaces, drops empty fragments and joins the rest with "\n".
func Normalize(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range spaceRun.Split(strings.TrimSpace(line), -1) {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				out = append(out, phrase)
			}
		}
	}
	return strings.Join(out, "\n")
}
