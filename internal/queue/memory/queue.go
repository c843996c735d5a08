// Package memory provides the in-process task queue shared by the worker pool.
package memory

import (
	"sync"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Queue is a fixed, ordered list of tasks with a single shared cursor.
// The task slice is never mutated after construction; only the cursor moves.
type Queue struct {
	tasks []crawler.Task

	mu     sync.Mutex
	cursor int
}

// NewQueue seeds a queue with the full task list. The slice is copied.
func NewQueue(tasks []crawler.Task) *Queue {
	return &Queue{
		tasks: append([]crawler.Task(nil), tasks...),
	}
}

// Claim returns the next unclaimed task. The second return value is false once
// the queue is exhausted, and stays false for every later call.
func (q *Queue) Claim() (crawler.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cursor >= len(q.tasks) {
		return crawler.Task{}, false
	}
	task := q.tasks[q.cursor]
	q.cursor++
	return task, true
}

// Len returns the number of tasks the queue was seeded with.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Claimed returns how many tasks have been handed out so far.
func (q *Queue) Claimed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}
