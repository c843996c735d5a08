// Package worker implements the per-task crawl pipeline loop.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	"github.com/JakeFAU/keyword-crawler/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	RunID         string
	ContentType   string
	BlobPrefix    string
	KeepArtifacts bool
	// Hasher digests each fetched body. Digests are skipped when nil.
	Hasher crawler.Hasher
}

// Recorder receives the outcome of every claimed task.
type Recorder interface {
	Record(outcome crawler.Outcome)
}

// Worker claims tasks from the shared queue until it is exhausted. Each task is
// fetched, persisted as an artifact, scanned, and merged into the shared table.
type Worker struct {
	id        int
	queue     crawler.TaskQueue
	table     crawler.CounterTable
	recorder  Recorder
	fetcher   crawler.Fetcher
	blobStore crawler.BlobStore
	scanner   crawler.Scanner
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	id int,
	queue crawler.TaskQueue,
	table crawler.CounterTable,
	recorder Recorder,
	fetcher crawler.Fetcher,
	blobStore crawler.BlobStore,
	scanner crawler.Scanner,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	return &Worker{
		id:        id,
		queue:     queue,
		table:     table,
		recorder:  recorder,
		fetcher:   fetcher,
		blobStore: blobStore,
		scanner:   scanner,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks until the queue reports no remaining task. Task failures never
// end the loop. ctx is only handed to the fetcher and blob store.
func (w *Worker) Run(ctx context.Context) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	processed := 0
	for {
		task, ok := w.queue.Claim()
		if !ok {
			w.logger.Debug("queue exhausted", zap.Int("processed", processed))
			return
		}
		outcome := w.process(ctx, task)
		processed++
		metrics.ObserveTask(string(outcome.Status))
		if w.recorder != nil {
			w.recorder.Record(outcome)
		}
	}
}

func (w *Worker) process(ctx context.Context, task crawler.Task) crawler.Outcome {
	outcome := crawler.Outcome{Task: task, Worker: w.id}
	logger := w.logger.With(zap.Int("task", task.SequenceIndex), zap.String("url", task.URL))

	resp, err := w.fetch(ctx, task)
	if err != nil {
		logger.Error("fetch failed", zap.Error(err))
		outcome.Status = crawler.OutcomeFetchFailed
		outcome.StatusCode = statusCodeOf(err)
		outcome.Error = err.Error()
		return outcome
	}
	outcome.StatusCode = resp.StatusCode
	outcome.Bytes = int64(len(resp.Body))
	metrics.ObserveFetch(task.URL, len(resp.Body), resp.Duration)
	if w.cfg.Hasher != nil {
		digest, err := w.cfg.Hasher.Hash(resp.Body)
		if err != nil {
			logger.Warn("hash page failed", zap.Error(err))
		}
		outcome.ContentHash = digest
	}

	path := w.buildBlobPath(task)
	uri, err := w.persist(ctx, path, resp.Body)
	if err != nil {
		logger.Error("persist artifact failed", zap.String("artifact", path), zap.Error(err))
		outcome.Status = crawler.OutcomeIOFailed
		outcome.Error = err.Error()
		return outcome
	}
	outcome.ArtifactURI = uri
	logger.Info("page downloaded", zap.String("artifact", uri), zap.Int("bytes", len(resp.Body)))

	counts, err := w.scanArtifact(ctx, path)
	w.discard(ctx, path, logger)
	if err != nil {
		logger.Error("scan artifact failed", zap.String("artifact", path), zap.Error(err))
		outcome.Status = crawler.OutcomeIOFailed
		outcome.Error = err.Error()
		return outcome
	}

	w.table.Merge(counts)
	metrics.ObserveKeywords(counts)
	outcome.Status = crawler.OutcomeSucceeded
	outcome.Counts = counts
	logger.Info("page scanned", zap.String("artifact", path), zap.Any("counts", map[string]int(counts)))
	return outcome
}

func (w *Worker) fetch(ctx context.Context, task crawler.Task) (crawler.FetchResponse, error) {
	if w.fetcher == nil {
		return crawler.FetchResponse{}, crawler.TransportError(errors.New("no fetcher configured"))
	}
	resp, err := w.fetcher.Fetch(ctx, crawler.FetchRequest{
		RunID: w.cfg.RunID,
		URL:   task.URL,
	})
	if err != nil {
		return crawler.FetchResponse{}, crawler.TransportError(fmt.Errorf("fetch %s: %w", task.URL, err))
	}
	if resp.StatusCode != 0 && (resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices) {
		return crawler.FetchResponse{}, &crawler.StatusError{URL: task.URL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (w *Worker) persist(ctx context.Context, path string, body []byte) (string, error) {
	uri, err := w.blobStore.PutObject(ctx, path, w.cfg.ContentType, bytes.NewReader(body))
	if err != nil {
		return "", crawler.IOError(fmt.Errorf("put object: %w", err))
	}
	return uri, nil
}

func (w *Worker) scanArtifact(ctx context.Context, path string) (crawler.Counts, error) {
	rc, err := w.blobStore.GetObject(ctx, path)
	if err != nil {
		return nil, crawler.IOError(fmt.Errorf("get object: %w", err))
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			w.logger.Warn("close artifact reader failed", zap.String("artifact", path), zap.Error(cerr))
		}
	}()
	counts, err := w.scanner.Scan(rc)
	if err != nil {
		return nil, crawler.IOError(fmt.Errorf("scan: %w", err))
	}
	return counts, nil
}

func (w *Worker) discard(ctx context.Context, path string, logger *zap.Logger) {
	if w.cfg.KeepArtifacts {
		return
	}
	if err := w.blobStore.DeleteObject(ctx, path); err != nil {
		logger.Warn("delete artifact failed", zap.String("artifact", path), zap.Error(err))
	}
}

func (w *Worker) buildBlobPath(task crawler.Task) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return task.ArtifactName()
	}
	return fmt.Sprintf("%s/%s", prefix, task.ArtifactName())
}

func statusCodeOf(err error) int {
	var statusErr *crawler.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
