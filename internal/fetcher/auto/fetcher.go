// Package auto fetches pages over plain HTTP and re-fetches them in a
// headless browser when the HTTP body looks client rendered.
package auto

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Detector decides whether a response needs rendering.
type Detector interface {
	NeedsRender(statusCode int, body []byte) bool
}

// Fetcher tries fast first and falls back to render.
type Fetcher struct {
	fast     crawler.Fetcher
	render   crawler.Fetcher
	detector Detector
	logger   *zap.Logger
}

// New combines a plain fetcher with a rendering one. A nil detector uses
// NewHeuristic.
func New(fast, render crawler.Fetcher, detector Detector, logger *zap.Logger) *Fetcher {
	if detector == nil {
		detector = NewHeuristic()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{fast: fast, render: render, detector: detector, logger: logger}
}

// Fetch returns the plain response unless the detector asks for rendering.
// A failed render falls back to the plain response.
func (f *Fetcher) Fetch(ctx context.Context, req crawler.FetchRequest) (crawler.FetchResponse, error) {
	resp, err := f.fast.Fetch(ctx, req)
	if err != nil {
		return crawler.FetchResponse{}, err
	}
	if f.render == nil || !f.detector.NeedsRender(resp.StatusCode, resp.Body) {
		return resp, nil
	}

	rendered, err := f.render.Fetch(ctx, req)
	if err != nil {
		f.logger.Warn("render failed, keeping plain response", zap.String("url", req.URL), zap.Error(err))
		return resp, nil
	}
	f.logger.Debug("page rendered",
		zap.String("url", req.URL),
		zap.Int("plain_bytes", len(resp.Body)),
		zap.Int("rendered_bytes", len(rendered.Body)),
	)
	rendered.Duration += resp.Duration
	return rendered, nil
}
