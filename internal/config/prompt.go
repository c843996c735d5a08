package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JakeFAU/keyword-crawler/internal/scanner"
)

// Prompter asks for the run parameters on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Prompt asks for the keyword count, each keyword, the URL cap, and the worker
// count, and overwrites the matching fields of cfg. An answer outside its
// range stops the prompt with the matching configuration error.
func (p *Prompter) Prompt(cfg *Config) error {
	count, err := p.askInt(fmt.Sprintf("Enter number of keywords to search for (%d-%d): ", MinKeywords, MaxKeywords))
	if err != nil {
		return err
	}
	if count < MinKeywords || count > MaxKeywords {
		return fmt.Errorf("%w: got %d", ErrKeywordCount, count)
	}

	keywords := make([]string, 0, count)
	for i := range count {
		answer, err := p.ask(fmt.Sprintf("Enter keyword #%d (max %d characters): ", i+1, MaxKeywordLength))
		if err != nil {
			return err
		}
		kw := scanner.Normalize(answer)
		if kw == "" || len(kw) > MaxKeywordLength {
			return fmt.Errorf("%w: keyword #%d", ErrInvalidKeyword, i+1)
		}
		keywords = append(keywords, kw)
	}

	maxURLs, err := p.askInt(fmt.Sprintf("Enter maximum number of URLs to crawl (%d-%d): ", MinURLs, MaxURLs))
	if err != nil {
		return err
	}
	if maxURLs < MinURLs || maxURLs > MaxURLs {
		return fmt.Errorf("%w: got %d", ErrMaxURLs, maxURLs)
	}

	workers, err := p.askInt(fmt.Sprintf("Enter number of workers to use (%d-%d): ", MinWorkers, MaxWorkers))
	if err != nil {
		return err
	}
	if workers < MinWorkers || workers > MaxWorkers {
		return fmt.Errorf("%w: got %d", ErrWorkerCount, workers)
	}

	cfg.Crawl.Keywords = keywords
	cfg.Crawl.MaxURLs = maxURLs
	cfg.Crawl.Workers = workers
	return nil
}

func (p *Prompter) ask(question string) (string, error) {
	if _, err := io.WriteString(p.out, question); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) askInt(question string) (int, error) {
	answer, err := p.ask(question)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidSetting, answer)
	}
	return n, nil
}
