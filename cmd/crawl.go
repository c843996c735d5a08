package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/app"
	"github.com/JakeFAU/keyword-crawler/internal/config"
	"github.com/JakeFAU/keyword-crawler/internal/logging"
)

// flagKeys maps crawl flags onto config keys.
var flagKeys = map[string]string{
	"keyword":  "crawl.keywords",
	"url":      "crawl.urls",
	"url-file": "crawl.url_file",
	"max-urls": "crawl.max_urls",
	"workers":  "crawl.workers",
	"fetcher":  "fetcher.mode",
	"format":   "report.format",
	"output":   "report.output",
	"verbose":  "report.verbose",
	"listen":   "metrics.addr",
}

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the configured URLs and print keyword totals",
		Long: `Reads the URL list, fetches every page with a pool of workers, stores a
copy of each page, and prints the total count of every keyword once all
workers have finished. Pages that fail to download or store are skipped.`,
		RunE: runCrawlCommand,
	}

	flags := cmd.Flags()
	flags.StringSliceP("keyword", "k", nil, "keyword to count (repeatable, 2-5)")
	flags.StringSlice("url", nil, "URL to crawl in addition to the url file (repeatable)")
	flags.String("url-file", "", "file with one URL per line")
	flags.Int("max-urls", 0, "maximum number of URLs to crawl (1-150)")
	flags.IntP("workers", "w", 0, "number of workers (1-32)")
	flags.String("fetcher", "", "fetcher mode: http, headless, or auto")
	flags.String("format", "", "report format: text, markdown, or json")
	flags.StringP("output", "o", "", "report destination path, - for stdout")
	flags.BoolP("verbose", "v", false, "list failed pages in the text report")
	flags.String("listen", "", "address for the status and metrics endpoint")
	flags.BoolP("interactive", "i", false, "prompt for keywords, URL cap, and workers")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	urls, err := cfg.ResolveURLs()
	if err != nil {
		return fmt.Errorf("resolve urls: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []app.Option
	if cfg.Report.Output == "" || cfg.Report.Output == "-" {
		opts = append(opts, app.WithReportOutput(cmd.OutOrStdout()))
	}
	runner, err := newRunner(ctx, cfg, logger, opts...)
	if err != nil {
		_ = logger.Sync()
		return fmt.Errorf("initialize services: %w", err)
	}
	defer runner.Close()

	logger.Info("crawl command started",
		zap.Strings("keywords", cfg.Crawl.Keywords),
		zap.Int("urls", len(urls)),
		zap.Int("workers", cfg.Crawl.Workers),
	)
	report, err := runner.Run(ctx, urls)
	if err != nil && !errors.Is(err, app.ErrDelivery) {
		return err
	}
	logger.Info("crawl command finished",
		zap.String("run_id", report.RunID),
		zap.Int("pages_succeeded", report.PagesSucceeded),
		zap.Int("pages_failed", report.PagesFailed),
	)
	return err
}

// loadConfig layers defaults, the config file, environment, flags, and
// interactive answers, then validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("read config flag: %w", err)
	}
	v, err := config.NewViper(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := bindFlags(v, cmd); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return config.Config{}, err
	}

	interactive, err := cmd.Flags().GetBool("interactive")
	if err != nil {
		return config.Config{}, fmt.Errorf("read interactive flag: %w", err)
	}
	if interactive {
		if err := config.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Prompt(&cfg); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}
