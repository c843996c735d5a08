package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

func TestQueueClaimInOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue(crawler.NewTasks([]string{"https://a.example", "https://b.example"}))
	require.Equal(t, 2, q.Len())

	first, ok := q.Claim()
	require.True(t, ok)
	assert.Equal(t, crawler.Task{SequenceIndex: 0, URL: "https://a.example"}, first)

	second, ok := q.Claim()
	require.True(t, ok)
	assert.Equal(t, 1, second.SequenceIndex)

	_, ok = q.Claim()
	assert.False(t, ok)
	_, ok = q.Claim()
	assert.False(t, ok, "exhausted queue must stay exhausted")
	assert.Equal(t, 2, q.Claimed())
}

func TestQueueEmpty(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil)
	_, ok := q.Claim()
	assert.False(t, ok)
	assert.Zero(t, q.Claimed())
}

func TestQueueCopiesSeedSlice(t *testing.T) {
	t.Parallel()

	tasks := crawler.NewTasks([]string{"https://a.example"})
	q := NewQueue(tasks)
	tasks[0].URL = "https://mutated.example"

	got, ok := q.Claim()
	require.True(t, ok)
	assert.Equal(t, "https://a.example", got.URL)
}

func TestQueueConcurrentClaimsAreExactlyOnce(t *testing.T) {
	t.Parallel()

	const (
		taskCount = 500
		claimers  = 16
	)
	urls := make([]string, taskCount)
	for i := range urls {
		urls[i] = "https://example.com/page"
	}
	q := NewQueue(crawler.NewTasks(urls))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int]int, taskCount)
	)
	for range claimers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, ok := q.Claim()
				if !ok {
					return
				}
				mu.Lock()
				seen[task.SequenceIndex]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, taskCount)
	for idx, n := range seen {
		require.Equalf(t, 1, n, "task %d claimed %d times", idx, n)
	}
	assert.Equal(t, taskCount, q.Claimed())
}
