// Package store persists accounts, per-account message history, and a
// small key-value table for counters.
package store

import (
	"context"
	"errors"

	"github.com/sluu99/sabbathtext-sub001/internal/core"
)

// ErrNotFound marks a missing account or key-value entry.
var ErrNotFound = errors.New("not found")

// AccountStore is the persistence surface the processors run on. The
// account record has no compare-and-swap: updates are last-writer-wins,
// which the cycle scheduler tolerates via its CycleKey check.
type AccountStore interface {
	// GetByPhone returns the account owning the phone number, or
	// ErrNotFound.
	GetByPhone(ctx context.Context, phone string) (*core.Account, error)

	// GetOrCreate returns the existing account for phone or creates a
	// brand-new one. Idempotent under races: concurrent callers all
	// receive the same account, and created reports whether this call
	// performed the insert.
	GetOrCreate(ctx context.Context, phone string) (acct *core.Account, created bool, err error)

	// Update persists the full account record.
	Update(ctx context.Context, acct *core.Account) error

	// RecordMessage appends an inbound message to the account's audit
	// history.
	RecordMessage(ctx context.Context, accountID string, msg *core.Message) error

	// GetKeyValue reads a counter/value; ErrNotFound when absent.
	GetKeyValue(ctx context.Context, key string) (string, error)

	// PutKeyValue upserts a counter/value.
	PutKeyValue(ctx context.Context, key, value string) error
}
