// Package queue is a small in-memory delay queue for messages whose delivery
// failed and should be attempted again later.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID          string
	Channel     string
	Payload     []byte
	RetryAt     time.Time
	Attempts    int
	MaxAttempts int
}

func NewEntry(channel string, payload []byte, retryAt time.Time, maxAttempts int) *Entry {
	return &Entry{
		ID:          uuid.NewString(),
		Channel:     channel,
		Payload:     payload,
		RetryAt:     retryAt,
		Attempts:    1,
		MaxAttempts: maxAttempts,
	}
}

// Exhausted reports whether the entry has used up its attempts.
func (e *Entry) Exhausted() bool {
	return e.MaxAttempts > 0 && e.Attempts >= e.MaxAttempts
}

type Queue struct {
	items []*Entry
	mu    sync.Mutex
}

func NewQueue() *Queue {
	return &Queue{
		items: make([]*Entry, 0),
	}
}

func (q *Queue) Enqueue(e *Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, e)
}

// Dequeue removes and returns the first entry due at now, or nil.
func (q *Queue) Dequeue(now time.Time) *Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.items {
		if !e.RetryAt.After(now) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return e
		}
	}
	return nil
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// GetAll returns a snapshot of the queued entries in insertion order.
func (q *Queue) GetAll() []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]*Entry, len(q.items))
	copy(result, q.items)
	return result
}
