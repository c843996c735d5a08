// Package app builds the long-lived services of a crawl run from
// configuration and drives one run end to end.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/api"
	"github.com/JakeFAU/keyword-crawler/internal/clock/system"
	"github.com/JakeFAU/keyword-crawler/internal/config"
	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	"github.com/JakeFAU/keyword-crawler/internal/dispatcher"
	"github.com/JakeFAU/keyword-crawler/internal/fetcher/auto"
	collyfetcher "github.com/JakeFAU/keyword-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/keyword-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/keyword-crawler/internal/hash/sha256"
	"github.com/JakeFAU/keyword-crawler/internal/id/uuid"
	"github.com/JakeFAU/keyword-crawler/internal/metrics"
	"github.com/JakeFAU/keyword-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/keyword-crawler/internal/report"
	"github.com/JakeFAU/keyword-crawler/internal/scanner"
	"github.com/JakeFAU/keyword-crawler/internal/storage/gcs"
	"github.com/JakeFAU/keyword-crawler/internal/storage/local"
	"github.com/JakeFAU/keyword-crawler/internal/storage/memory"
	"github.com/JakeFAU/keyword-crawler/internal/storage/postgres"
)

// ErrDelivery wraps report sink failures. The crawl itself finished.
var ErrDelivery = errors.New("report delivery failed")

// Option overrides a component that New would otherwise build from config.
type Option func(*App)

// WithFetcher replaces the configured fetcher.
func WithFetcher(f crawler.Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// WithBlobStore replaces the configured artifact store.
func WithBlobStore(s crawler.BlobStore) Option {
	return func(a *App) { a.blobStore = s }
}

// WithReportOutput sends the rendered report to w instead of report.output.
func WithReportOutput(w io.Writer) Option {
	return func(a *App) { a.reportOut = w }
}

// WithSink appends an extra report sink after the configured ones.
func WithSink(name string, sink crawler.ReportSink) Option {
	return func(a *App) { a.extra = append(a.extra, namedSink{name: name, sink: sink}) }
}

// WithStatusListener serves the status endpoint on ln instead of metrics.addr.
func WithStatusListener(ln net.Listener) Option {
	return func(a *App) { a.listener = ln }
}

type namedSink struct {
	name string
	sink crawler.ReportSink
}

// App holds every service a crawl run needs.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	fetcher    crawler.Fetcher
	blobStore  crawler.BlobStore
	dispatcher *dispatcher.Dispatcher
	status     *api.Server
	listener   net.Listener
	reportOut  io.Writer
	sinks      []namedSink
	extra      []namedSink

	closeOnce sync.Once
	closers   []func() error
}

// New builds the services described by cfg. It fails fast when a configured
// backend cannot be reached. cfg must already be validated.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	metrics.Init()

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	s, err := scanner.New(a.cfg.Crawl.Keywords, scanner.WithChunkSize(a.cfg.Crawl.ScanChunkBytes))
	if err != nil {
		return fmt.Errorf("build scanner: %w", err)
	}
	if a.fetcher == nil {
		if err := a.buildFetcher(); err != nil {
			return err
		}
	}
	if a.blobStore == nil {
		if err := a.buildBlobStore(ctx); err != nil {
			return err
		}
	}
	if err := a.buildSinks(ctx); err != nil {
		return err
	}

	a.dispatcher = dispatcher.New(
		dispatcher.Config{
			Workers:       a.cfg.Crawl.Workers,
			BlobPrefix:    a.cfg.Storage.Prefix,
			ContentType:   a.cfg.Storage.ContentType,
			KeepArtifacts: a.cfg.Storage.KeepArtifacts,
			Hasher:        sha256.New(),
		},
		a.fetcher,
		a.blobStore,
		s,
		uuid.New(),
		system.New(),
		a.logger,
	)

	if a.listener == nil && a.cfg.Metrics.Addr != "" {
		ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", a.cfg.Metrics.Addr, err)
		}
		a.listener = ln
		a.onClose(func() error {
			if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				return err
			}
			return nil
		})
	}
	if a.listener != nil {
		a.status = api.NewServer(a.dispatcher, a.logger.Named("api"))
	}
	return nil
}

func (a *App) buildFetcher() error {
	plain := collyfetcher.New(collyfetcher.Config{
		UserAgent:   a.cfg.HTTP.UserAgent,
		Timeout:     a.cfg.HTTP.Timeout(),
		MaxBodySize: a.cfg.HTTP.MaxBodyBytes,
	})
	if a.cfg.Fetcher.Mode != config.FetcherHeadless && a.cfg.Fetcher.Mode != config.FetcherAuto {
		a.fetcher = plain
		a.logger.Info("using http fetcher", zap.Duration("timeout", a.cfg.HTTP.Timeout()))
		return nil
	}

	browser, err := headless.New(headless.Config{
		MaxParallel:       a.cfg.Headless.MaxParallel,
		UserAgent:         a.cfg.HTTP.UserAgent,
		NavigationTimeout: secondsOf(a.cfg.Headless.NavTimeoutSec),
		SettleDelay:       millisOf(a.cfg.Headless.SettleMillis),
		MaxBodySize:       a.cfg.HTTP.MaxBodyBytes,
		ExecPath:          a.cfg.Headless.ExecPath,
	})
	if err != nil {
		return fmt.Errorf("start headless fetcher: %w", err)
	}
	a.onClose(func() error { browser.Close(); return nil })

	if a.cfg.Fetcher.Mode == config.FetcherAuto {
		a.fetcher = auto.New(plain, browser, auto.NewHeuristic(), a.logger.Named("fetcher"))
	} else {
		a.fetcher = browser
	}
	a.logger.Info("using browser fetcher",
		zap.String("mode", a.cfg.Fetcher.Mode),
		zap.Int("max_parallel", a.cfg.Headless.MaxParallel),
	)
	return nil
}

func (a *App) buildBlobStore(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case config.StorageMemory:
		a.blobStore = memory.NewBlobStore()
	case config.StorageGCS:
		store, err := gcs.Dial(ctx, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return fmt.Errorf("connect to gcs: %w", err)
		}
		a.blobStore = store
		a.onClose(store.Close)
	default:
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.BaseDir})
		if err != nil {
			return fmt.Errorf("open artifact directory: %w", err)
		}
		a.blobStore = store
	}
	a.logger.Info("artifact storage ready", zap.String("backend", a.cfg.Storage.Backend))
	return nil
}

func (a *App) buildSinks(ctx context.Context) error {
	out := a.reportOut
	if out == nil {
		if a.cfg.Report.Output == "" || a.cfg.Report.Output == "-" {
			out = os.Stdout
		} else {
			f, err := os.Create(a.cfg.Report.Output)
			if err != nil {
				return fmt.Errorf("create report file: %w", err)
			}
			out = f
			a.onClose(f.Close)
		}
	}
	w, err := a.reportWriter(out)
	if err != nil {
		return err
	}
	a.sinks = append(a.sinks, namedSink{name: "report", sink: report.NewSink(w)})

	if a.cfg.DB.DSN != "" {
		store, err := postgres.NewReportStore(ctx, postgres.Config{DSN: a.cfg.DB.DSN, Table: a.cfg.DB.Table})
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.onClose(func() error { store.Close(); return nil })
		if a.cfg.DB.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate report tables: %w", err)
			}
		}
		a.sinks = append(a.sinks, namedSink{name: "postgres", sink: store})
	}

	if a.cfg.PubSub.Enabled() {
		pub, err := pubsub.Dial(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
		if err != nil {
			return fmt.Errorf("connect to pubsub: %w", err)
		}
		a.onClose(pub.Close)
		a.sinks = append(a.sinks, namedSink{name: "pubsub", sink: pub})
	}

	a.sinks = append(a.sinks, a.extra...)
	return nil
}

func (a *App) reportWriter(out io.Writer) (report.Writer, error) {
	if a.cfg.Report.Format == "" || a.cfg.Report.Format == report.FormatText {
		return report.NewTextWriter(out, report.WithVerbose(a.cfg.Report.Verbose)), nil
	}
	w, err := report.NewWriter(a.cfg.Report.Format, out)
	if err != nil {
		return nil, fmt.Errorf("report writer: %w", err)
	}
	return w, nil
}

// Run crawls urls and hands the report to every sink in order. A sink
// failure does not stop later sinks; the joined failures are returned wrapped
// in ErrDelivery together with the report. Delivery ignores cancellation of
// ctx so a report finished after an interrupt still reaches every sink.
func (a *App) Run(ctx context.Context, urls []string) (crawler.Report, error) {
	statusDone := a.startStatus(ctx)
	defer statusDone()

	rep, err := a.dispatcher.Run(ctx, urls)
	if err != nil {
		return crawler.Report{}, fmt.Errorf("run crawl: %w", err)
	}

	deliverCtx := context.WithoutCancel(ctx)
	var errs []error
	for _, s := range a.sinks {
		if err := s.sink.Consume(deliverCtx, rep); err != nil {
			a.logger.Error("report sink failed", zap.String("sink", s.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	if len(errs) > 0 {
		return rep, fmt.Errorf("%w: %w", ErrDelivery, errors.Join(errs...))
	}
	return rep, nil
}

func (a *App) startStatus(ctx context.Context) func() {
	if a.status == nil || a.listener == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.status.Serve(ctx, a.listener); err != nil {
			a.logger.Error("status server failed", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases every service in reverse construction order and flushes
// the logger.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				a.logger.Warn("error closing service", zap.Error(err))
			}
		}
		_ = a.logger.Sync()
	})
}

func secondsOf(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func millisOf(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
