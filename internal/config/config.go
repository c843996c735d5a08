// Package config loads and validates crawl configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/keyword-crawler/internal/logging"
	"github.com/JakeFAU/keyword-crawler/internal/scanner"
)

// EnvPrefix is prepended to every environment override, for example
// KEYWORDCRAWL_CRAWL_WORKERS=4.
const EnvPrefix = "KEYWORDCRAWL"

// Limits enforced by Validate.
const (
	MinKeywords      = 2
	MaxKeywords      = 5
	MaxKeywordLength = 63
	MinWorkers       = 1
	MaxWorkers       = 32
	MinURLs          = 1
	MaxURLs          = 150
)

// Fetcher modes.
const (
	FetcherHTTP     = "http"
	FetcherHeadless = "headless"
	FetcherAuto     = "auto"
)

// Storage backends.
const (
	StorageLocal  = "local"
	StorageMemory = "memory"
	StorageGCS    = "gcs"
)

// Config captures all knobs for one crawl run.
type Config struct {
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Report   ReportConfig   `mapstructure:"report"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  logging.Config `mapstructure:"logging"`
}

// CrawlConfig selects what to crawl and how many workers to use.
type CrawlConfig struct {
	Keywords       []string `mapstructure:"keywords"`
	URLFile        string   `mapstructure:"url_file"`
	URLs           []string `mapstructure:"urls"`
	MaxURLs        int      `mapstructure:"max_urls"`
	Workers        int      `mapstructure:"workers"`
	ScanChunkBytes int      `mapstructure:"scan_chunk_bytes"`
}

// HTTPConfig configures the HTTP fetcher.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// Timeout converts TimeoutSeconds to a duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FetcherConfig picks the fetcher implementation.
type FetcherConfig struct {
	Mode string `mapstructure:"mode"`
}

// HeadlessConfig configures the headless browser fetcher.
type HeadlessConfig struct {
	MaxParallel   int    `mapstructure:"max_parallel"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	SettleMillis  int    `mapstructure:"settle_ms"`
	ExecPath      string `mapstructure:"exec_path"`
}

// StorageConfig selects where page artifacts are written.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	BaseDir       string `mapstructure:"base_dir"`
	Prefix        string `mapstructure:"prefix"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	ContentType   string `mapstructure:"content_type"`
	KeepArtifacts bool   `mapstructure:"keep_artifacts"`
}

// ReportConfig controls the final report rendering.
type ReportConfig struct {
	Format  string `mapstructure:"format"`
	Output  string `mapstructure:"output"`
	Verbose bool   `mapstructure:"verbose"`
}

// DBConfig enables report persistence when DSN is set.
type DBConfig struct {
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
	Migrate bool   `mapstructure:"migrate"`
}

// PubSubConfig enables report publication when both fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether publication is configured.
func (c PubSubConfig) Enabled() bool {
	return c.ProjectID != "" && c.TopicName != ""
}

// MetricsConfig enables the status listener when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds and validates a Config from an optional file plus environment.
func Load(path string) (Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Decode(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewViper returns a Viper instance with defaults, environment binding, and
// the optional config file already read. Callers may bind flags before Decode.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals v and normalizes keywords. It does not validate, so that
// interactive answers can still be applied.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.keywords", []string{"data", "science", "algorithm"})
	v.SetDefault("crawl.url_file", "")
	v.SetDefault("crawl.urls", []string{})
	v.SetDefault("crawl.max_urls", 50)
	v.SetDefault("crawl.workers", 8)
	v.SetDefault("crawl.scan_chunk_bytes", scanner.DefaultChunkSize)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "keywordcrawl/1.0")
	v.SetDefault("http.max_body_bytes", 10*1024*1024)
	v.SetDefault("fetcher.mode", FetcherHTTP)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.settle_ms", 500)
	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.base_dir", ".")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("storage.keep_artifacts", true)
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "-")
	v.SetDefault("db.table", "keyword_runs")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Normalize trims and lowercases keywords the same way page content is
// folded, and trims path-like settings.
func (c *Config) Normalize() {
	for i, kw := range c.Crawl.Keywords {
		c.Crawl.Keywords[i] = scanner.Normalize(kw)
	}
	c.Crawl.URLFile = strings.TrimSpace(c.Crawl.URLFile)
	c.Fetcher.Mode = strings.ToLower(strings.TrimSpace(c.Fetcher.Mode))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Report.Format = strings.ToLower(strings.TrimSpace(c.Report.Format))
}

// Validate enforces required values and the documented limits.
func (c Config) Validate() error {
	if err := validateKeywords(c.Crawl.Keywords); err != nil {
		return err
	}
	if c.Crawl.Workers < MinWorkers || c.Crawl.Workers > MaxWorkers {
		return fmt.Errorf("%w: got %d", ErrWorkerCount, c.Crawl.Workers)
	}
	if c.Crawl.MaxURLs < MinURLs || c.Crawl.MaxURLs > MaxURLs {
		return fmt.Errorf("%w: got %d", ErrMaxURLs, c.Crawl.MaxURLs)
	}
	if c.Crawl.ScanChunkBytes <= 0 {
		return fmt.Errorf("%w: crawl.scan_chunk_bytes must be > 0", ErrInvalidSetting)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: http.timeout_seconds must be > 0", ErrInvalidSetting)
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: http.max_body_bytes must be >= 0", ErrInvalidSetting)
	}
	switch c.Fetcher.Mode {
	case FetcherHTTP:
	case FetcherHeadless, FetcherAuto:
		if c.Headless.MaxParallel < 0 {
			return fmt.Errorf("%w: headless.max_parallel must be >= 0", ErrInvalidSetting)
		}
	default:
		return fmt.Errorf("%w: fetcher.mode %q", ErrInvalidSetting, c.Fetcher.Mode)
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	switch c.Report.Format {
	case "text", "markdown", "md", "json":
	default:
		return fmt.Errorf("%w: report.format %q", ErrInvalidSetting, c.Report.Format)
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("%w: pubsub.project_id and pubsub.topic_name must be set together", ErrInvalidSetting)
	}
	return nil
}

func validateKeywords(keywords []string) error {
	if len(keywords) == 0 {
		return ErrNoKeywords
	}
	if len(keywords) < MinKeywords || len(keywords) > MaxKeywords {
		return fmt.Errorf("%w: got %d", ErrKeywordCount, len(keywords))
	}
	seen := make(map[string]struct{}, len(keywords))
	for i, kw := range keywords {
		if kw == "" {
			return fmt.Errorf("%w: keyword #%d is empty", ErrInvalidKeyword, i+1)
		}
		if len(kw) > MaxKeywordLength {
			return fmt.Errorf("%w: keyword #%d exceeds %d bytes", ErrInvalidKeyword, i+1, MaxKeywordLength)
		}
		if _, dup := seen[kw]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKeyword, kw)
		}
		seen[kw] = struct{}{}
	}
	return nil
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case StorageMemory:
	case StorageLocal:
		if strings.TrimSpace(s.BaseDir) == "" {
			return fmt.Errorf("%w: storage.base_dir is required for the local backend", ErrInvalidStorage)
		}
	case StorageGCS:
		if strings.TrimSpace(s.GCSBucket) == "" {
			return fmt.Errorf("%w: storage.gcs_bucket is required for the gcs backend", ErrInvalidStorage)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidStorage, s.Backend)
	}
	return nil
}
