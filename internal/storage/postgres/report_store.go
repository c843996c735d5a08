// Package postgres persists crawl reports to Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultTable is the run table used when none is configured.
const DefaultTable = "keyword_runs"

// Config controls the Postgres connection pool used for report rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// ReportStore writes one run row plus one row per keyword total. The totals
// table is named after the run table with a _totals suffix.
type ReportStore struct {
	pool        pool
	runTable    string
	totalsTable string
}

// NewReportStore connects to Postgres using the provided config.
func NewReportStore(ctx context.Context, cfg Config) (*ReportStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewReportStoreWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewReportStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewReportStoreWithPool(p pool, table string) (*ReportStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ReportStore{pool: p, runTable: table, totalsTable: table + "_totals"}, nil
}

// Close releases the underlying pool resources.
func (s *ReportStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the report tables when they do not exist.
func (s *ReportStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	run_id          UUID PRIMARY KEY,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL,
	workers         INTEGER NOT NULL,
	tasks           INTEGER NOT NULL,
	pages_succeeded INTEGER NOT NULL,
	pages_failed    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS %[2]s (
	run_id   UUID NOT NULL REFERENCES %[1]s (run_id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	keyword  TEXT NOT NULL,
	total    BIGINT NOT NULL,
	PRIMARY KEY (run_id, keyword)
);`, s.runTable, s.totalsTable)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("migrate report tables: %w", err)
	}
	return nil
}

// Consume stores the report in a single transaction.
func (s *ReportStore) Consume(ctx context.Context, report crawler.Report) (err error) {
	if s == nil || s.pool == nil {
		return fmt.Errorf("report store is not configured")
	}
	if report.RunID == "" {
		return fmt.Errorf("report run id is required")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	runQuery := fmt.Sprintf(`
INSERT INTO %s (run_id, started_at, finished_at, workers, tasks, pages_succeeded, pages_failed)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.runTable)
	if _, err = tx.Exec(ctx, runQuery,
		report.RunID,
		report.StartedAt,
		report.FinishedAt,
		report.Workers,
		report.Tasks,
		report.PagesSucceeded,
		report.PagesFailed,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	totalQuery := fmt.Sprintf(`
INSERT INTO %s (run_id, position, keyword, total)
VALUES ($1, $2, $3, $4)`, s.totalsTable)
	for i, kt := range report.Totals {
		if _, err = tx.Exec(ctx, totalQuery, report.RunID, i, kt.Keyword, kt.Total); err != nil {
			return fmt.Errorf("insert total for %q: %w", kt.Keyword, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}
