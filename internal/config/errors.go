package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the parent of every validation error below. Any error
// that matches it is fatal and is reported before a worker starts.
var ErrConfiguration = errors.New("invalid configuration")

// Configuration validation errors. Validate wraps them with the offending
// value, so match with errors.Is.
var (
	// ErrNoKeywords is returned when no keyword is configured.
	ErrNoKeywords = fmt.Errorf("%w: at least one keyword is required", ErrConfiguration)

	// ErrKeywordCount is returned when the keyword count is outside 2-5.
	ErrKeywordCount = fmt.Errorf("%w: keyword count must be between %d and %d", ErrConfiguration, MinKeywords, MaxKeywords)

	// ErrInvalidKeyword is returned for keywords that are empty after
	// trimming or longer than MaxKeywordLength.
	ErrInvalidKeyword = fmt.Errorf("%w: invalid keyword", ErrConfiguration)

	// ErrDuplicateKeyword is returned when two keywords normalize to the same value.
	ErrDuplicateKeyword = fmt.Errorf("%w: duplicate keyword", ErrConfiguration)

	// ErrNoURLs is returned when neither the URL file nor the inline list yields a URL.
	ErrNoURLs = fmt.Errorf("%w: no urls to crawl", ErrConfiguration)

	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = fmt.Errorf("%w: invalid url", ErrConfiguration)

	// ErrURLFile is returned when the URL file cannot be read.
	ErrURLFile = fmt.Errorf("%w: cannot read url file", ErrConfiguration)

	// ErrWorkerCount is returned when the worker count is outside 1-32.
	ErrWorkerCount = fmt.Errorf("%w: worker count must be between %d and %d", ErrConfiguration, MinWorkers, MaxWorkers)

	// ErrMaxURLs is returned when the URL cap is outside 1-150.
	ErrMaxURLs = fmt.Errorf("%w: max urls must be between %d and %d", ErrConfiguration, MinURLs, MaxURLs)

	// ErrInvalidStorage is returned for an unknown backend or missing backend settings.
	ErrInvalidStorage = fmt.Errorf("%w: invalid storage settings", ErrConfiguration)

	// ErrInvalidSetting is returned for any other out-of-range value.
	ErrInvalidSetting = fmt.Errorf("%w: invalid setting", ErrConfiguration)
)
