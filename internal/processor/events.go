package processor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sluu99/sabbathtext-sub001/internal/core"
	"github.com/sluu99/sabbathtext-sub001/internal/metrics"
	"github.com/sluu99/sabbathtext-sub001/internal/router"
)

// sabbathDuplicateWindow: two reminders closer together than this are
// almost certainly a duplicate delivery, since the cycle targets one
// per week.
const sabbathDuplicateWindow = 5 * 24 * time.Hour

// Key-value counter names.
const (
	counterAccountsCreated    = "counter:accounts_created"
	counterAccountsSubscribed = "counter:accounts_subscribed"
	counterGreetings          = "counter:greetings_requested"
	counterSabbathMessages    = "counter:sabbath_messages_sent"
)

// NewSabbath handles the Sabbath event: compose the weekly reminder.
//
// A delivery gap under five days is logged as a probable duplicate but
// the reminder is still sent and the timestamp still updated — the
// observed behavior of the original service, preserved deliberately
// (see DESIGN.md).
func NewSabbath(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps:               deps,
		subscriberRequired: true,
		skipRecord:         true,
		handle: func(ctx context.Context, acct *core.Account, msg *core.Message) (*core.Message, error) {
			now := deps.Clock.Now()

			if !acct.LastSabbathMessageTime.IsZero() && now.Sub(acct.LastSabbathMessageTime) < sabbathDuplicateWindow {
				deps.Log.Warn("probable duplicate sabbath delivery",
					zap.String("account", acct.ID),
					zap.Time("last_sent", acct.LastSabbathMessageTime))
				metrics.SabbathDuplicates.Inc()
			}

			verse := core.PickVerse(acct)
			acct.RememberVerse(verse.Reference)
			acct.LastSabbathMessageTime = now
			if err := deps.Accounts.Update(ctx, acct); err != nil {
				return nil, fmt.Errorf("persist sabbath send for %s: %w", acct.ID, err)
			}

			deps.bumpCounter(ctx, counterSabbathMessages)
			metrics.SabbathSends.Inc()
			return core.NewReply(acct.PhoneNumber, core.ReplyHappySabbath(verse), now), nil
		},
	}
}

// NewZipCodeUpdated reacts to a location change by resetting the
// account cycle with zero lead: the next tick runs immediately and
// re-evaluates the Sabbath margin under the new coordinates.
func NewZipCodeUpdated(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps:       deps,
		skipRecord: true,
		handle: func(ctx context.Context, acct *core.Account, _ *core.Message) (*core.Message, error) {
			if acct.ZipCode == "" {
				// The event only ever follows a successful ZIP update;
				// reaching here means a bug, not bad input. Fail for
				// redelivery and investigation.
				return nil, fmt.Errorf("zip updated event for account %s with no zip code", acct.ID)
			}
			return nil, startCycle(ctx, deps, acct, 0)
		},
	}
}

// NewAccountSubscribed starts the account's first cycle. The first tick
// carries a fresh key, so it reschedules itself and the recurring loop
// is live from there on.
func NewAccountSubscribed(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps:       deps,
		skipRecord: true,
		handle: func(ctx context.Context, acct *core.Account, _ *core.Message) (*core.Message, error) {
			deps.bumpCounter(ctx, counterAccountsSubscribed)
			return nil, startCycle(ctx, deps, acct, 0)
		},
	}
}

// NewAccountCreated is bookkeeping only.
func NewAccountCreated(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps:       deps,
		skipRecord: true,
		handle: func(ctx context.Context, _ *core.Account, _ *core.Message) (*core.Message, error) {
			deps.bumpCounter(ctx, counterAccountsCreated)
			return nil, nil
		},
	}
}

// NewGreetingsRequested is bookkeeping only; stateless, no account
// lookup needed.
func NewGreetingsRequested(deps *Deps) router.Processor {
	return router.ProcessorFunc(func(ctx context.Context, _ *core.Message) (*core.Message, error) {
		deps.bumpCounter(ctx, counterGreetings)
		return nil, nil
	})
}
