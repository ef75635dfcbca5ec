// Package processor holds the business logic reacting to inbound
// commands and internal events: subscription, ZIP updates, the account
// cycle scheduler, and the Sabbath reminder itself.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sluu99/sabbathtext-sub001/internal/clock"
	"github.com/sluu99/sabbathtext-sub001/internal/core"
	"github.com/sluu99/sabbathtext-sub001/internal/geo"
	"github.com/sluu99/sabbathtext-sub001/internal/queue"
	"github.com/sluu99/sabbathtext-sub001/internal/store"
	"github.com/sluu99/sabbathtext-sub001/internal/sun"
)

// ErrValidation marks bad input (empty sender, malformed payload).
// The worker deletes such messages instead of retrying them.
var ErrValidation = errors.New("validation")

// Event lifespan on the event queue. Long enough to survive a full
// cycle plus redelivery slack.
const eventLifeSpan = 14 * 24 * time.Hour

// Deps carries every collaborator a processor may need. Constructed
// once at wiring time; no global registry.
type Deps struct {
	Accounts  store.AccountStore
	Locations geo.Resolver
	Sun       *sun.Calc
	Events    queue.Queue
	Clock     clock.Clock
	Log       *zap.Logger

	// CycleDuration is the recurring wake-up interval for subscribed
	// accounts.
	CycleDuration time.Duration
}

// enqueueEvent puts an internal event on the event queue after delay.
func (d *Deps) enqueueEvent(ctx context.Context, evt *core.Message, delay time.Duration) error {
	body, err := evt.Encode()
	if err != nil {
		return err
	}
	_, err = d.Events.Add(ctx, body, delay, eventLifeSpan)
	return err
}

// bumpCounter increments a named counter in the key-value store. The
// counters are operational conveniences; read-modify-write races just
// undercount slightly.
func (d *Deps) bumpCounter(ctx context.Context, name string) {
	v, err := d.Accounts.GetKeyValue(ctx, name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		d.Log.Warn("read counter", zap.String("counter", name), zap.Error(err))
		return
	}
	n, _ := strconv.ParseInt(v, 10, 64)
	if err := d.Accounts.PutKeyValue(ctx, name, strconv.FormatInt(n+1, 10)); err != nil {
		d.Log.Warn("write counter", zap.String("counter", name), zap.Error(err))
	}
}

// HandlerFunc is the processor-specific body invoked by the shared
// account-bound flow.
type HandlerFunc func(ctx context.Context, acct *core.Account, msg *core.Message) (*core.Message, error)

// accountProcessor wraps a handler with the shared account flow:
// validate the sender, create-or-get the account, optionally gate on
// subscription, optionally record the message, then delegate.
type accountProcessor struct {
	deps               *Deps
	handle             HandlerFunc
	subscriberRequired bool
	skipRecord         bool
}

func (p *accountProcessor) Process(ctx context.Context, msg *core.Message) (*core.Message, error) {
	if msg.Sender == "" {
		return nil, fmt.Errorf("empty sender on message %s: %w", msg.ID, ErrValidation)
	}

	acct, created, err := p.deps.Accounts.GetOrCreate(ctx, msg.Sender)
	if err != nil {
		return nil, fmt.Errorf("get or create account: %w", err)
	}
	if created {
		evt := core.NewEvent(core.EventAccountCreated, acct.PhoneNumber, "", p.deps.Clock.Now())
		if err := p.deps.enqueueEvent(ctx, evt, 0); err != nil {
			p.deps.Log.Warn("enqueue account created event", zap.String("account", acct.ID), zap.Error(err))
		}
	}

	if p.subscriberRequired && acct.Status != core.StatusSubscribed {
		return nil, nil
	}

	if !p.skipRecord {
		if err := p.deps.Accounts.RecordMessage(ctx, acct.ID, msg); err != nil {
			// Audit history is best-effort; losing a row is not worth a
			// redelivery loop.
			p.deps.Log.Warn("record message", zap.String("account", acct.ID), zap.Error(err))
		}
	}

	return p.handle(ctx, acct, msg)
}
