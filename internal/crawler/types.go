package crawler

import (
	"fmt"
	"net/http"
	"time"
)

// Task is one unit of work: fetch a URL and scan the resulting page.
// SequenceIndex only derives a unique artifact name; it implies no processing order.
type Task struct {
	SequenceIndex int    `json:"sequence_index"`
	URL           string `json:"url"`
}

// ArtifactName returns the collision-free storage name for the task's page copy.
func (t Task) ArtifactName() string {
	return fmt.Sprintf("page_%d.html", t.SequenceIndex)
}

// NewTasks builds the ordered task list for the given URLs.
func NewTasks(urls []string) []Task {
	tasks := make([]Task, len(urls))
	for i, u := range urls {
		tasks[i] = Task{SequenceIndex: i, URL: u}
	}
	return tasks
}

// Counts maps a keyword to its occurrence count.
type Counts map[string]int

// Add folds other into c.
func (c Counts) Add(other Counts) {
	for k, v := range other {
		c[k] += v
	}
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	RunID   string
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// OutcomeStatus classifies how a task finished.
type OutcomeStatus string

// Task outcome values.
const (
	OutcomeSucceeded   OutcomeStatus = "succeeded"
	OutcomeFetchFailed OutcomeStatus = "fetch_failed"
	OutcomeIOFailed    OutcomeStatus = "io_failed"
)

// Outcome records what happened to a single task.
type Outcome struct {
	Task        Task          `json:"task"`
	Status      OutcomeStatus `json:"status"`
	StatusCode  int           `json:"status_code,omitempty"`
	Bytes       int64         `json:"bytes"`
	ArtifactURI string        `json:"artifact_uri,omitempty"`
	ContentHash string        `json:"content_hash,omitempty"`
	Counts      Counts        `json:"counts,omitempty"`
	Error       string        `json:"error,omitempty"`
	Worker      int           `json:"worker"`
}

// KeywordTotal is one row of the final report.
type KeywordTotal struct {
	Keyword string `json:"keyword"`
	Total   int    `json:"total"`
}

// Report is produced once every worker has exited.
type Report struct {
	RunID          string         `json:"run_id"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Workers        int            `json:"workers"`
	Tasks          int            `json:"tasks"`
	PagesSucceeded int            `json:"pages_succeeded"`
	PagesFailed    int            `json:"pages_failed"`
	Totals         []KeywordTotal `json:"totals"`
	Outcomes       []Outcome      `json:"outcomes,omitempty"`
}

// Total returns the total for keyword and whether the keyword is part of the report.
func (r Report) Total(keyword string) (int, bool) {
	for _, kt := range r.Totals {
		if kt.Keyword == keyword {
			return kt.Total, true
		}
	}
	return 0, false
}

// Duration reports the wall time of the run.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
