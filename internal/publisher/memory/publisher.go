// Package memory contains an in-memory report sink for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Publisher stores consumed reports for inspection.
type Publisher struct {
	mu      sync.RWMutex
	reports []crawler.Report
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Consume records the report.
func (p *Publisher) Consume(_ context.Context, report crawler.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, report)
	return nil
}

// Reports returns the recorded reports.
func (p *Publisher) Reports() []crawler.Report {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]crawler.Report, len(p.reports))
	copy(out, p.reports)
	return out
}
