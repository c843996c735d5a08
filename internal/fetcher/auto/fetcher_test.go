package auto

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

func TestHeuristicNeedsRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{name: "empty body", status: http.StatusOK, body: "", want: true},
		{name: "next mount point", status: http.StatusOK, body: `<div id="__next"></div>`, want: true},
		{name: "marker case folded", status: http.StatusOK, body: `<DIV ID="root"></DIV>`, want: true},
		{name: "script heavy", status: http.StatusOK, body: `<html><script>var a=1;</script><p>t</p></html>`, want: true},
		{name: "unterminated script", status: http.StatusOK, body: `<p>x</p><script>boot(`, want: true},
		{name: "plain page", status: http.StatusOK, body: "<html><body><p>Plenty of data science text here</p></body></html>", want: false},
		{
			name:   "large page with scripts",
			status: http.StatusOK,
			body:   "<script>x()</script>" + strings.Repeat("<p>data</p>", 400),
			want:   false,
		},
		{name: "not found", status: http.StatusNotFound, body: "", want: false},
	}
	h := NewHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, h.NeedsRender(tt.status, []byte(tt.body)))
		})
	}
}

func TestScriptShare(t *testing.T) {
	t.Parallel()

	assert.Zero(t, scriptShare(nil))
	assert.Zero(t, scriptShare([]byte("<p>no scripts</p>")))
	assert.Equal(t, 100, scriptShare([]byte("<script>a</script>")))
	assert.Equal(t, 50, scriptShare([]byte("<script></script>abcdefghijklmnopq")))
}

type stubFetcher struct {
	resp  crawler.FetchResponse
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, crawler.FetchRequest) (crawler.FetchResponse, error) {
	s.calls++
	return s.resp, s.err
}

func TestFetcher_PlainPageSkipsRender(t *testing.T) {
	t.Parallel()

	fast := &stubFetcher{resp: crawler.FetchResponse{StatusCode: http.StatusOK, Body: []byte("<p>data science</p>")}}
	render := &stubFetcher{}
	f := New(fast, render, nil, nil)

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: "https://a.example"})
	require.NoError(t, err)
	assert.Equal(t, "<p>data science</p>", string(resp.Body))
	assert.Zero(t, render.calls)
}

func TestFetcher_ShellIsRendered(t *testing.T) {
	t.Parallel()

	fast := &stubFetcher{resp: crawler.FetchResponse{StatusCode: http.StatusOK, Duration: time.Second}}
	render := &stubFetcher{resp: crawler.FetchResponse{
		StatusCode:   http.StatusOK,
		Body:         []byte("<p>rendered data</p>"),
		Duration:     2 * time.Second,
		UsedHeadless: true,
	}}
	f := New(fast, render, nil, nil)

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: "https://spa.example"})
	require.NoError(t, err)
	assert.True(t, resp.UsedHeadless)
	assert.Equal(t, "<p>rendered data</p>", string(resp.Body))
	assert.Equal(t, 3*time.Second, resp.Duration)
}

func TestFetcher_RenderFailureKeepsPlainResponse(t *testing.T) {
	t.Parallel()

	fast := &stubFetcher{resp: crawler.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`<div id="app"></div>`)}}
	render := &stubFetcher{err: errors.New("chrome not found")}
	f := New(fast, render, nil, nil)

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: "https://spa.example"})
	require.NoError(t, err)
	assert.False(t, resp.UsedHeadless)
	assert.Equal(t, 1, render.calls)
}

func TestFetcher_FastErrorIsReturned(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	render := &stubFetcher{}
	f := New(&stubFetcher{err: boom}, render, nil, nil)

	_, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: "https://down.example"})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, render.calls)
}

func TestFetcher_NilRenderer(t *testing.T) {
	t.Parallel()

	fast := &stubFetcher{resp: crawler.FetchResponse{StatusCode: http.StatusOK}}
	resp, err := New(fast, nil, nil, nil).Fetch(context.Background(), crawler.FetchRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
