// Package api hosts the status HTTP server that runs alongside a crawl.
// Routes:
//   - GET /healthz and /readyz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/progress for the state of the current run.
package api
