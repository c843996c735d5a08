package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

const maxURLLineBytes = 1 << 20

// DefaultURLFile is read when neither a URL file nor inline URLs are configured.
const DefaultURLFile = "urls.txt"

// ReadURLs reads one URL per line from r, skipping blank lines and lines
// starting with '#'. Reading stops once limit URLs were collected; a limit of
// zero or less reads everything.
func ReadURLs(r io.Reader, limit int) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxURLLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimRight(sc.Text(), "\r\n"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
		if limit > 0 && len(urls) >= limit {
			return urls, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan urls: %w", err)
	}
	return urls, nil
}

// ResolveURLs collects the crawl list: URLs from Crawl.URLFile first, then
// Crawl.URLs, capped at Crawl.MaxURLs. With no file and no inline URLs,
// DefaultURLFile is read if it exists. Every URL must be an absolute http or
// https URL. Duplicates are kept; each occurrence is its own task.
func (c Config) ResolveURLs() ([]string, error) {
	var urls []string
	switch {
	case c.Crawl.URLFile != "":
		fromFile, err := readURLFile(c.Crawl.URLFile, c.Crawl.MaxURLs)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	case len(c.Crawl.URLs) == 0:
		fromFile, err := readURLFile(DefaultURLFile, c.Crawl.MaxURLs)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, ErrNoURLs
			}
			return nil, err
		}
		urls = append(urls, fromFile...)
	}
	for _, u := range c.Crawl.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if c.Crawl.MaxURLs > 0 && len(urls) > c.Crawl.MaxURLs {
		urls = urls[:c.Crawl.MaxURLs]
	}
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	for i, u := range urls {
		if err := ValidateURL(u); err != nil {
			return nil, fmt.Errorf("url #%d: %w", i+1, err)
		}
	}
	return urls, nil
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q: missing host", ErrInvalidURL, raw)
	}
	return nil
}

func readURLFile(path string, limit int) ([]string, error) {
	// #nosec G304 -- the url file path is operator supplied.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrURLFile, err)
	}
	defer func() { _ = f.Close() }()
	urls, err := ReadURLs(f, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrURLFile, path, err)
	}
	return urls, nil
}
