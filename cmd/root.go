// Package cmd defines the keywordcrawl command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyword-crawler/internal/app"
	"github.com/JakeFAU/keyword-crawler/internal/config"
	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Runner drives one crawl. *app.App satisfies it; tests swap in a fake.
type Runner interface {
	Run(ctx context.Context, urls []string) (crawler.Report, error)
	Close()
}

// newRunner is the service factory. It is a variable so tests can replace it.
var newRunner = func(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...app.Option) (Runner, error) {
	return app.New(ctx, cfg, logger, opts...)
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywordcrawl",
		Short: "Count keyword occurrences across a list of web pages.",
		Long: `keywordcrawl downloads every URL in a list with a fixed pool of workers,
keeps a copy of each page, and reports how often each keyword occurs across
all pages. Matching is case-insensitive and non-overlapping.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "config file (yaml, json, or toml)")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
