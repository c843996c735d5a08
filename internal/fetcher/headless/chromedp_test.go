package headless

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxParallel: -1})
	require.Error(t, err)

	f, err := New(Config{MaxParallel: 2, SettleDelay: -time.Second})
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, 2, cap(f.slots))
	assert.Equal(t, DefaultNavigationTimeout, f.cfg.NavigationTimeout)
	assert.Zero(t, f.cfg.SettleDelay)
}

func TestSlotsBlockUntilReleased(t *testing.T) {
	t.Parallel()

	f, err := New(Config{MaxParallel: 1})
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = f.acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	f.release()
	require.NoError(t, f.acquire(context.Background()))
	f.release()
}

func TestDocumentResponseKeepsLastDocument(t *testing.T) {
	t.Parallel()

	doc := &documentResponse{}
	doc.listen(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 301, URL: "https://example.com/old"},
	})
	doc.listen(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 404, URL: "https://example.com/app.js"},
	})
	doc.listen(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  200,
			URL:     "https://example.com/new",
			Headers: network.Headers{"X-Request-ID": "abc", "Set-Cookie": []any{"a=1", "b=2"}},
		},
	})
	doc.listen("unrelated event")

	status, headers, url := doc.result("https://req", "https://final")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://example.com/new", url)
	assert.Equal(t, "abc", headers.Get("X-Request-ID"))
	assert.Equal(t, []string{"a=1", "b=2"}, headers.Values("Set-Cookie"))
}

func TestDocumentResponseFallbacks(t *testing.T) {
	t.Parallel()

	status, headers, url := (&documentResponse{}).result("https://req", "https://final")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://final", url)
	assert.NotNil(t, headers)

	_, _, url = (&documentResponse{}).result("https://req", "")
	assert.Equal(t, "https://req", url)
}

func TestToNetworkHeaders(t *testing.T) {
	t.Parallel()

	src := http.Header{"X-Multi": {"a", "b"}, "X-Single": {"c"}, "X-Empty": {}}
	got := toNetworkHeaders(src)
	assert.Equal(t, []string{"a", "b"}, got["X-Multi"])
	assert.Equal(t, "c", got["X-Single"])
	assert.NotContains(t, got, "X-Empty")

	src["X-Multi"][0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, got["X-Multi"])
}

// TestFetchRendersPage drives a real browser and is skipped when none is installed.
func TestFetchRendersPage(t *testing.T) {
	execPath := findChrome()
	if execPath == "" {
		t.Skip("chrome not available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><div id="out"></div>
<script>document.getElementById("out").textContent = "rendered DATA science";</script>
</body></html>`)
	}))
	defer srv.Close()

	f, err := New(Config{ExecPath: execPath, NavigationTimeout: 20 * time.Second, SettleDelay: 100 * time.Millisecond})
	require.NoError(t, err)
	defer f.Close()

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	assert.True(t, resp.UsedHeadless)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "rendered DATA science")

	_, err = f.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL + "/missing"})
	require.ErrorIs(t, err, crawler.ErrTransport)
}

func findChrome() string {
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
