package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sluu99/sabbathtext-sub001/internal/clock"
)

// Memory is a mutex-guarded Queue with the same visibility semantics as
// the durable implementation. Time comes from an injected clock so
// tests can step through visibility windows without sleeping.
type Memory struct {
	clk clock.Clock

	mu      sync.Mutex
	entries []*memEntry
}

type memEntry struct {
	id           string
	body         string
	dequeueCount int
	insertedAt   time.Time
	visibleAt    time.Time
	expiresAt    time.Time
}

// NewMemory returns an empty in-memory queue.
func NewMemory(clk clock.Clock) *Memory {
	return &Memory{clk: clk}
}

func (q *Memory) Add(_ context.Context, body string, visibilityDelay, lifeSpan time.Duration) (string, error) {
	now := q.clk.Now()
	e := &memEntry{
		id:         uuid.NewString(),
		body:       body,
		insertedAt: now,
		visibleAt:  now.Add(visibilityDelay),
		expiresAt:  now.Add(lifeSpan),
	}
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()
	return e.id, nil
}

func (q *Memory) Get(_ context.Context, visibilityTimeout time.Duration) (*Message, error) {
	now := q.clk.Now()
	q.mu.Lock()
	defer q.mu.Unlock()

	var pick *memEntry
	for _, e := range q.entries {
		if e.visibleAt.After(now) || !e.expiresAt.After(now) {
			continue
		}
		if pick == nil || e.insertedAt.Before(pick.insertedAt) {
			pick = e
		}
	}
	if pick == nil {
		return nil, nil
	}
	pick.visibleAt = now.Add(visibilityTimeout)
	pick.dequeueCount++
	return snapshot(pick), nil
}

func (q *Memory) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.id == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len counts live (non-expired) messages, visible or not.
func (q *Memory) Len() int {
	now := q.clk.Now()
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, e := range q.entries {
		if e.expiresAt.After(now) {
			n++
		}
	}
	return n
}

// Snapshot copies every live entry without claiming anything. Used by
// tests to assert on scheduled events.
func (q *Memory) Snapshot() []Message {
	now := q.clk.Now()
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, 0, len(q.entries))
	for _, e := range q.entries {
		if e.expiresAt.After(now) {
			out = append(out, *snapshot(e))
		}
	}
	return out
}

func snapshot(e *memEntry) *Message {
	return &Message{
		ID:             e.id,
		Body:           e.body,
		DequeueCount:   e.dequeueCount,
		InsertionTime:  e.insertedAt,
		NextVisible:    e.visibleAt,
		ExpirationTime: e.expiresAt,
	}
}
