package auto

import (
	"bytes"
	"net/http"
)

// DefaultSmallBody is the body size below which a script-heavy page is
// assumed to be a client-rendered shell.
const DefaultSmallBody = 2048

// Heuristic decides from a plain HTTP response whether the page needs a
// browser to produce its text.
type Heuristic struct {
	SmallBody int
	// ScriptPercent is the share of the body inside <script> elements at
	// which a small page counts as script heavy.
	ScriptPercent int
}

// NewHeuristic returns a Heuristic with the default thresholds.
func NewHeuristic() *Heuristic {
	return &Heuristic{SmallBody: DefaultSmallBody, ScriptPercent: 25}
}

var shellMarkers = [][]byte{
	[]byte(`id="__next"`),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// NeedsRender reports whether a 200 response looks like an application shell.
// Empty bodies, small script-heavy pages, and known framework mount points all
// qualify.
func (h *Heuristic) NeedsRender(statusCode int, body []byte) bool {
	if statusCode != http.StatusOK {
		return false
	}
	if len(body) == 0 {
		return true
	}
	lower := bytes.ToLower(body)
	if len(body) < h.SmallBody && scriptShare(lower) >= h.ScriptPercent {
		return true
	}
	for _, marker := range shellMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// scriptShare returns the percentage of body covered by <script> elements.
// An unterminated element covers the rest of the body.
func scriptShare(body []byte) int {
	total := len(body)
	if total == 0 {
		return 0
	}
	openTag := []byte("<script")
	closeTag := []byte("</script>")

	covered := 0
	for pos := 0; pos < total; {
		rel := bytes.Index(body[pos:], openTag)
		if rel < 0 {
			break
		}
		start := pos + rel
		end := total
		if tagEnd := bytes.IndexByte(body[start:], '>'); tagEnd >= 0 {
			contentStart := start + tagEnd + 1
			if closeRel := bytes.Index(body[contentStart:], closeTag); closeRel >= 0 {
				end = contentStart + closeRel + len(closeTag)
			}
		}
		covered += end - start
		pos = end
	}
	return covered * 100 / total
}
