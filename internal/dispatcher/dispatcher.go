// Package dispatcher runs a fixed pool of workers over one task list and
// assembles the run report once every worker has exited.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/keyword-crawler/internal/aggregate"
	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	"github.com/JakeFAU/keyword-crawler/internal/metrics"
	"github.com/JakeFAU/keyword-crawler/internal/queue/memory"
	"github.com/JakeFAU/keyword-crawler/internal/worker"
)

// ErrNoWorkers is returned by Run when the pool size is below one.
var ErrNoWorkers = errors.New("dispatcher: worker count must be at least 1")

// ErrWorkerPanic is returned by Run when a worker panicked. The remaining
// workers still drain the queue before Run returns.
var ErrWorkerPanic = errors.New("dispatcher: worker panicked")

// KeywordScanner is a Scanner that also exposes its normalized keywords, which
// seed the counter table.
type KeywordScanner interface {
	crawler.Scanner
	Keywords() []string
}

// Config controls the pool.
type Config struct {
	Workers       int
	BlobPrefix    string
	ContentType   string
	KeepArtifacts bool
	Hasher        crawler.Hasher
}

// Progress is a point-in-time view of a running crawl.
type Progress struct {
	RunID     string `json:"run_id"`
	Running   bool   `json:"running"`
	Tasks     int    `json:"tasks"`
	Claimed   int    `json:"claimed"`
	Completed int    `json:"completed"`
}

// Dispatcher spawns exactly Config.Workers workers for each run.
type Dispatcher struct {
	cfg       Config
	fetcher   crawler.Fetcher
	blobStore crawler.BlobStore
	scanner   KeywordScanner
	ids       crawler.IDGenerator
	clock     crawler.Clock
	logger    *zap.Logger

	current atomic.Pointer[run]
}

type run struct {
	id        string
	queue     *memory.Queue
	completed atomic.Int64
	done      atomic.Bool
}

// New creates a Dispatcher.
func New(
	cfg Config,
	fetcher crawler.Fetcher,
	blobStore crawler.BlobStore,
	scanner KeywordScanner,
	ids crawler.IDGenerator,
	clock crawler.Clock,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		cfg:       cfg,
		fetcher:   fetcher,
		blobStore: blobStore,
		scanner:   scanner,
		ids:       ids,
		clock:     clock,
		logger:    logger,
	}
}

// Run processes every URL exactly once and returns the aggregate report. It
// blocks until all workers have drained the queue. ctx is forwarded to fetches
// and artifact I/O only; it does not stop workers between tasks.
func (d *Dispatcher) Run(ctx context.Context, urls []string) (crawler.Report, error) {
	if d.cfg.Workers < 1 {
		return crawler.Report{}, ErrNoWorkers
	}
	runID, err := d.ids.NewID()
	if err != nil {
		return crawler.Report{}, fmt.Errorf("new run id: %w", err)
	}

	tasks := crawler.NewTasks(urls)
	queue := memory.NewQueue(tasks)
	table := aggregate.NewTable(d.scanner.Keywords())
	ledger := aggregate.NewLedger(len(tasks))
	current := &run{id: runID, queue: queue}
	d.current.Store(current)

	logger := d.logger.With(zap.String("run_id", runID))
	startedAt := d.clock.Now()
	logger.Info("crawl started", zap.Int("tasks", len(tasks)), zap.Int("workers", d.cfg.Workers))

	recorder := &countingRecorder{ledger: ledger, completed: &current.completed}
	var g errgroup.Group
	for i := range d.cfg.Workers {
		w := worker.New(
			i,
			queue,
			table,
			recorder,
			d.fetcher,
			d.blobStore,
			d.scanner,
			worker.Config{
				RunID:         runID,
				ContentType:   d.cfg.ContentType,
				BlobPrefix:    d.cfg.BlobPrefix,
				KeepArtifacts: d.cfg.KeepArtifacts,
				Hasher:        d.cfg.Hasher,
			},
			logger.Named("worker").With(zap.Int("worker", i)),
		)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("worker panicked", zap.Int("worker", i), zap.Any("panic", r))
					err = fmt.Errorf("%w: worker %d: %v", ErrWorkerPanic, i, r)
				}
			}()
			w.Run(ctx)
			return nil
		})
	}
	err = g.Wait()
	current.done.Store(true)
	if err != nil {
		return crawler.Report{}, fmt.Errorf("worker pool: %w", err)
	}

	succeeded, failed := ledger.Tally()
	report := crawler.Report{
		RunID:          runID,
		StartedAt:      startedAt,
		FinishedAt:     d.clock.Now(),
		Workers:        d.cfg.Workers,
		Tasks:          len(tasks),
		PagesSucceeded: succeeded,
		PagesFailed:    failed,
		Totals:         table.Totals(),
		Outcomes:       ledger.Outcomes(),
	}
	metrics.ObserveRun()
	logger.Info("crawl finished",
		zap.Int("pages_succeeded", succeeded),
		zap.Int("pages_failed", failed),
		zap.Duration("duration", report.Duration()),
	)
	return report, nil
}

// Progress reports the state of the most recent run. The zero value is
// returned before the first run starts.
func (d *Dispatcher) Progress() Progress {
	current := d.current.Load()
	if current == nil {
		return Progress{}
	}
	return Progress{
		RunID:     current.id,
		Running:   !current.done.Load(),
		Tasks:     current.queue.Len(),
		Claimed:   current.queue.Claimed(),
		Completed: int(current.completed.Load()),
	}
}

type countingRecorder struct {
	ledger    *aggregate.Ledger
	completed *atomic.Int64
}

func (r *countingRecorder) Record(outcome crawler.Outcome) {
	r.ledger.Record(outcome)
	r.completed.Add(1)
}
