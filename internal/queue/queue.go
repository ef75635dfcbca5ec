// Package queue defines the durable at-least-once queue contract the
// message pipeline runs on, with an in-memory implementation for tests
// and local development and a Postgres implementation for production.
package queue

import (
	"context"
	"time"
)

// Message is a snapshot of a claimed queue entry. DequeueCount is
// incremented on every successful claim and drives the dead-letter
// policy in the worker.
type Message struct {
	ID             string
	Body           string
	DequeueCount   int
	InsertionTime  time.Time
	NextVisible    time.Time
	ExpirationTime time.Time
}

// Queue is the at-least-once store. The correctness property is mutual
// exclusion: a claimed message is invisible to other consumers until
// its visibility timeout elapses, and is removed only by Delete.
type Queue interface {
	// Add inserts a message that becomes visible after visibilityDelay
	// and expires after lifeSpan. Duplicate bodies are allowed.
	Add(ctx context.Context, body string, visibilityDelay, lifeSpan time.Duration) (string, error)

	// Get claims the earliest-visible non-expired message, hiding it for
	// visibilityTimeout and incrementing its dequeue count. Returns
	// (nil, nil) when nothing is visible.
	Get(ctx context.Context, visibilityTimeout time.Duration) (*Message, error)

	// Delete permanently removes a message. Deleting an unknown or
	// already-expired id is not an error.
	Delete(ctx context.Context, id string) error
}
