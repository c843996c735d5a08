package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/clock/system"
	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	"github.com/JakeFAU/keyword-crawler/internal/id/uuid"
	"github.com/JakeFAU/keyword-crawler/internal/scanner"
	"github.com/JakeFAU/keyword-crawler/internal/storage/memory"
)

var testStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newDispatcher(t *testing.T, workers int, fetcher crawler.Fetcher, keywords ...string) (*Dispatcher, *memory.BlobStore) {
	t.Helper()
	s, err := scanner.New(keywords)
	require.NoError(t, err)
	blobs := memory.NewBlobStore()
	d := New(
		Config{Workers: workers, KeepArtifacts: true},
		fetcher,
		blobs,
		s,
		uuid.New(),
		system.NewStepped(testStart, time.Second),
		zap.NewNop(),
	)
	return d, blobs
}

func pageURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%d.example/", i)
	}
	return urls
}

func TestDispatcherRun_TotalsIndependentOfWorkerCount(t *testing.T) {
	t.Parallel()

	urls := pageURLs(40)
	fetcher := newPageFetcher()
	for i, u := range urls {
		fetcher.pages[u] = strings.Repeat("Data science ", i%5) + strings.Repeat("ALGORITHM ", i%3)
	}

	var reports []crawler.Report
	for _, n := range []int{1, 3, 8, 32} {
		d, _ := newDispatcher(t, n, fetcher, "data", "science", "algorithm")
		report, err := d.Run(context.Background(), urls)
		require.NoError(t, err)
		assert.Equal(t, n, report.Workers)
		reports = append(reports, report)
	}

	want := []crawler.KeywordTotal{
		{Keyword: "data", Total: 80},
		{Keyword: "science", Total: 80},
		{Keyword: "algorithm", Total: 39},
	}
	for _, r := range reports {
		assert.Equal(t, want, r.Totals)
		assert.Equal(t, 40, r.Tasks)
		assert.Equal(t, 40, r.PagesSucceeded)
		assert.Zero(t, r.PagesFailed)
	}
}

func TestDispatcherRun_EveryTaskClaimedOnce(t *testing.T) {
	t.Parallel()

	urls := pageURLs(100)
	fetcher := newPageFetcher()
	for _, u := range urls {
		fetcher.pages[u] = "data"
	}
	d, blobs := newDispatcher(t, 16, fetcher, "data", "science")

	report, err := d.Run(context.Background(), urls)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, len(urls))
	for i, o := range report.Outcomes {
		assert.Equal(t, i, o.Task.SequenceIndex)
		assert.Equal(t, urls[i], o.Task.URL)
	}
	for _, u := range urls {
		assert.Equal(t, 1, fetcher.attempts(u), u)
	}
	assert.Len(t, blobs.Keys(), len(urls))
	total, ok := report.Total("data")
	require.True(t, ok)
	assert.Equal(t, 100, total)
}

func TestDispatcherRun_FailuresAreIsolated(t *testing.T) {
	t.Parallel()

	urls := pageURLs(5)
	fetcher := newPageFetcher()
	for _, u := range urls[1:] {
		fetcher.pages[u] = "data science"
	}
	fetcher.errs[urls[0]] = errors.New("dial tcp: connection refused")
	d, _ := newDispatcher(t, 4, fetcher, "data", "science")

	report, err := d.Run(context.Background(), urls)
	require.NoError(t, err)

	assert.Equal(t, 4, report.PagesSucceeded)
	assert.Equal(t, 1, report.PagesFailed)
	assert.Equal(t, crawler.OutcomeFetchFailed, report.Outcomes[0].Status)
	total, _ := report.Total("science")
	assert.Equal(t, 4, total)
}

func TestDispatcherRun_WorkerPanicFailsRun(t *testing.T) {
	t.Parallel()

	urls := pageURLs(6)
	fetcher := newPageFetcher()
	for _, u := range urls {
		fetcher.pages[u] = "data"
	}
	fetcher.panicOn = urls[2]
	d, _ := newDispatcher(t, 2, fetcher, "data", "science")

	_, err := d.Run(context.Background(), urls)
	require.ErrorIs(t, err, ErrWorkerPanic)
	assert.Contains(t, err.Error(), "nil map write")
	for _, u := range urls {
		if u != urls[2] {
			assert.Equal(t, 1, fetcher.attempts(u), "remaining tasks still drain: %s", u)
		}
	}
	assert.False(t, d.Progress().Running)
}

func TestDispatcherRun_DuplicateURLsAreSeparateTasks(t *testing.T) {
	t.Parallel()

	fetcher := newPageFetcher()
	fetcher.pages["https://dup.example/"] = "data"
	d, blobs := newDispatcher(t, 2, fetcher, "data", "science")

	report, err := d.Run(context.Background(), []string{"https://dup.example/", "https://dup.example/"})
	require.NoError(t, err)
	total, _ := report.Total("data")
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"page_0.html", "page_1.html"}, blobs.Keys())
}

func TestDispatcherRun_EmptyTaskList(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t, 4, newPageFetcher(), "data", "science")
	report, err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Tasks)
	assert.Equal(t, []crawler.KeywordTotal{{Keyword: "data"}, {Keyword: "science"}}, report.Totals)
}

func TestDispatcherRun_ReportTimestamps(t *testing.T) {
	t.Parallel()

	fetcher := newPageFetcher()
	fetcher.pages["https://a.example/"] = "data"
	d, _ := newDispatcher(t, 1, fetcher, "data", "science")

	report, err := d.Run(context.Background(), []string{"https://a.example/"})
	require.NoError(t, err)
	assert.Equal(t, testStart, report.StartedAt)
	assert.Equal(t, time.Second, report.Duration())
	require.NoError(t, uuid.Validate(report.RunID))
}

func TestDispatcherRun_RequiresWorkers(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t, 0, newPageFetcher(), "data", "science")
	_, err := d.Run(context.Background(), pageURLs(1))
	require.ErrorIs(t, err, ErrNoWorkers)
}

func TestDispatcherRun_IDFailure(t *testing.T) {
	t.Parallel()

	s, err := scanner.New([]string{"data", "science"})
	require.NoError(t, err)
	d := New(Config{Workers: 1}, newPageFetcher(), memory.NewBlobStore(), s,
		failingIDs{}, system.New(), nil)
	_, err = d.Run(context.Background(), pageURLs(1))
	require.ErrorContains(t, err, "new run id")
}

func TestDispatcherProgress(t *testing.T) {
	t.Parallel()

	urls := pageURLs(3)
	fetcher := newPageFetcher()
	for _, u := range urls {
		fetcher.pages[u] = "data"
	}
	fetcher.hold = urls[2]
	fetcher.held = make(chan struct{})
	fetcher.release = make(chan struct{})

	d, _ := newDispatcher(t, 1, fetcher, "data", "science")
	assert.Equal(t, Progress{}, d.Progress())

	done := make(chan crawler.Report, 1)
	go func() {
		report, err := d.Run(context.Background(), urls)
		assert.NoError(t, err)
		done <- report
	}()

	select {
	case <-fetcher.held:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch of the last task never started")
	}
	p := d.Progress()
	assert.True(t, p.Running)
	assert.Equal(t, 3, p.Tasks)
	assert.Equal(t, 3, p.Claimed)
	assert.Equal(t, 2, p.Completed)

	close(fetcher.release)
	var report crawler.Report
	select {
	case report = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}

	p = d.Progress()
	assert.False(t, p.Running)
	assert.Equal(t, 3, p.Completed)
	assert.Equal(t, report.RunID, p.RunID)
}

type pageFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls map[string]int

	hold    string
	held    chan struct{}
	release chan struct{}

	panicOn string
}

func newPageFetcher() *pageFetcher {
	return &pageFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *pageFetcher) attempts(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *pageFetcher) Fetch(_ context.Context, req crawler.FetchRequest) (crawler.FetchResponse, error) {
	if req.URL == f.panicOn {
		panic("nil map write")
	}
	if f.hold != "" && req.URL == f.hold {
		close(f.held)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.URL]++
	if err := f.errs[req.URL]; err != nil {
		return crawler.FetchResponse{}, err
	}
	body, ok := f.pages[req.URL]
	if !ok {
		return crawler.FetchResponse{URL: req.URL, StatusCode: http.StatusNotFound}, nil
	}
	return crawler.FetchResponse{URL: req.URL, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

type failingIDs struct{}

func (failingIDs) NewID() (string, error) { return "", errors.New("entropy exhausted") }
