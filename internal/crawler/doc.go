// Package crawler defines the core types and collaborator interfaces shared by
// the keyword crawl pipeline: tasks, per-page keyword counts, fetch requests and
// responses, task outcomes, and the final run report.
package crawler
