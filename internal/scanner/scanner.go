// Package scanner counts keyword occurrences in page content.
//
// Matching is case-insensitive over ASCII letters and non-overlapping per
// keyword: after a match at offset p of length L the next candidate starts at
// p+L. Content is consumed in fixed-size chunks; the last maxKeywordLen-1 bytes
// of each window are carried into the next one so an occurrence straddling a
// chunk boundary is counted exactly once.
package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// DefaultChunkSize is the number of bytes read per step.
const DefaultChunkSize = 4096

// ErrNoKeywords is returned by New when the keyword list is empty.
var ErrNoKeywords = errors.New("scanner: at least one keyword is required")

// Option configures a Scanner.
type Option func(*Scanner)

// WithChunkSize sets how many bytes are read per step. Values below 1 are ignored.
func WithChunkSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// Scanner is immutable after construction and safe for concurrent use.
type Scanner struct {
	keywords  []string
	patterns  [][]byte
	maxLen    int
	chunkSize int
}

// New builds a Scanner for the given keywords. Keywords are normalized with
// Normalize; empty keywords are rejected.
func New(keywords []string, opts ...Option) (*Scanner, error) {
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	s := &Scanner{
		keywords:  make([]string, len(keywords)),
		patterns:  make([][]byte, len(keywords)),
		chunkSize: DefaultChunkSize,
	}
	for i, kw := range keywords {
		norm := Normalize(kw)
		if norm == "" {
			return nil, fmt.Errorf("scanner: keyword %d is empty", i)
		}
		s.keywords[i] = norm
		s.patterns[i] = []byte(norm)
		if len(norm) > s.maxLen {
			s.maxLen = len(norm)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Keywords returns the normalized keywords in configuration order.
func (s *Scanner) Keywords() []string {
	return append([]string(nil), s.keywords...)
}

// Scan reads r to EOF and returns the non-overlapping count of every keyword.
// Every keyword is present in the result, with zero when it never occurs.
func (s *Scanner) Scan(r io.Reader) (crawler.Counts, error) {
	st := newScanState(len(s.patterns))
	carry := s.maxLen - 1
	window := make([]byte, 0, s.chunkSize+carry)
	chunk := make([]byte, s.chunkSize)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			lowerASCII(chunk[:n])
			window = append(window, chunk[:n]...)
			s.scanWindow(st, window)
			window = st.retain(window, carry)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scanner: read content: %w", err)
		}
	}

	out := make(crawler.Counts, len(s.keywords))
	for i, kw := range s.keywords {
		out[kw] = st.counts[i]
	}
	return out, nil
}

// scanState tracks, per keyword, the absolute offset where the next match may
// begin. Offsets before next[i] are either inside a counted match or were
// already examined as match starts.
type scanState struct {
	base   int64
	next   []int64
	counts []int
}

func newScanState(n int) *scanState {
	return &scanState{
		next:   make([]int64, n),
		counts: make([]int, n),
	}
}

func (s *Scanner) scanWindow(st *scanState, window []byte) {
	for i, pat := range s.patterns {
		pos := int(st.next[i] - st.base)
		if pos < 0 {
			pos = 0
		}
		for pos <= len(window)-len(pat) {
			idx := bytes.Index(window[pos:], pat)
			if idx < 0 {
				break
			}
			st.counts[i]++
			pos += idx + len(pat)
		}
		// every start below len(window)-len(pat)+1 has now been examined
		if examined := len(window) - len(pat) + 1; pos < examined {
			pos = examined
		}
		st.next[i] = st.base + int64(pos)
	}
}

// retain keeps the trailing carry bytes of window for the next read and
// advances the absolute base offset accordingly.
func (st *scanState) retain(window []byte, carry int) []byte {
	if carry <= 0 {
		st.base += int64(len(window))
		return window[:0]
	}
	if len(window) <= carry {
		return window
	}
	drop := len(window) - carry
	st.base += int64(drop)
	n := copy(window, window[drop:])
	return window[:n]
}

// Normalize lowercases ASCII letters and trims surrounding whitespace. Content
// is folded with the same rule so byte lengths never change.
func Normalize(keyword string) string {
	b := []byte(strings.TrimSpace(keyword))
	lowerASCII(b)
	return string(b)
}

func lowerASCII(b []byte) {
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
}
