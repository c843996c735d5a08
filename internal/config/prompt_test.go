package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptOverridesConfig(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("3\nData\n  Science \nalgorithm\n75\n4"), &out)

	var cfg Config
	require.NoError(t, p.Prompt(&cfg))
	assert.Equal(t, []string{"data", "science", "algorithm"}, cfg.Crawl.Keywords)
	assert.Equal(t, 75, cfg.Crawl.MaxURLs)
	assert.Equal(t, 4, cfg.Crawl.Workers)
	assert.Contains(t, out.String(), "Enter number of keywords to search for (2-5): ")
	assert.Contains(t, out.String(), "Enter keyword #3")
}

func TestPromptRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "keyword count", input: "7\n", want: ErrKeywordCount},
		{name: "not a number", input: "three\n", want: ErrInvalidSetting},
		{name: "blank keyword", input: "2\ndata\n\n", want: ErrInvalidKeyword},
		{name: "max urls", input: "2\na\nb\n500\n", want: ErrMaxURLs},
		{name: "workers", input: "2\na\nb\n50\n0\n", want: ErrWorkerCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Config{Crawl: CrawlConfig{Workers: 8}}
			err := NewPrompter(strings.NewReader(tt.input), &bytes.Buffer{}).Prompt(&cfg)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, 8, cfg.Crawl.Workers, "config untouched on error")
		})
	}
}

func TestPromptEndOfInput(t *testing.T) {
	t.Parallel()

	err := NewPrompter(strings.NewReader(""), &bytes.Buffer{}).Prompt(&Config{})
	require.Error(t, err)
}
