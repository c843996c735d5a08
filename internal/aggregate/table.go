// Package aggregate holds the shared per-keyword totals merged by workers.
package aggregate

import (
	"sync"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Table is the run-wide counter table. Entries are created up front, one per
// keyword in configuration order, and only ever grow.
type Table struct {
	keywords []string

	mu     sync.Mutex
	totals map[string]int
}

// NewTable returns a zeroed table for keywords.
func NewTable(keywords []string) *Table {
	t := &Table{
		keywords: append([]string(nil), keywords...),
		totals:   make(map[string]int, len(keywords)),
	}
	for _, kw := range keywords {
		t.totals[kw] = 0
	}
	return t
}

// Merge adds a partial result into the totals inside one critical section.
// Keywords not in the table and non-positive counts are ignored.
func (t *Table) Merge(partial crawler.Counts) {
	if len(partial) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for kw, n := range partial {
		if n <= 0 {
			continue
		}
		if _, ok := t.totals[kw]; !ok {
			continue
		}
		t.totals[kw] += n
	}
}

// Totals returns (keyword, total) pairs in configuration order. It is only
// meaningful once every writer has finished; the dispatcher calls it after its
// join barrier.
func (t *Table) Totals() []crawler.KeywordTotal {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]crawler.KeywordTotal, len(t.keywords))
	for i, kw := range t.keywords {
		out[i] = crawler.KeywordTotal{Keyword: kw, Total: t.totals[kw]}
	}
	return out
}
