package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sluu99/sabbathtext-sub001/internal/core"
	"github.com/sluu99/sabbathtext-sub001/internal/metrics"
)

// cycleMarginFactor models the worst case between consecutive wake-ups:
// an account can be woken anywhere inside its cycle window, so the next
// guaranteed wake-up is up to 1.5 cycles away.
const cycleMarginFactor = 1.5

// NewAccountCycle handles the recurring AccountCycle tick.
//
// A tick carrying the account's current CycleKey is the live one: the
// key rotates, the next tick is enqueued one CycleDuration out, and the
// account is persisted. The enqueue happens before the persist on
// purpose: if the persist fails, redelivery of the same tick still
// matches the old key and the whole step re-runs safely; the worst
// outcome is one extra scheduled tick, which only tightens the cycle.
//
// A tick with an empty or stale key never reschedules. Every tick,
// live or stale, runs the Sabbath margin check.
func NewAccountCycle(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps:       deps,
		skipRecord: true, // synthetic traffic, keep it out of user-visible history
		handle: func(ctx context.Context, acct *core.Account, msg *core.Message) (*core.Message, error) {
			key := cycleKeyParam(msg)

			if key != "" && key == acct.CycleKey {
				if err := rescheduleCycle(ctx, deps, acct); err != nil {
					return nil, err
				}
			} else {
				deps.Log.Debug("stale or initial cycle tick",
					zap.String("account", acct.ID),
					zap.String("param", key))
				metrics.CycleTicksStale.Inc()
			}

			return nil, checkForSabbath(ctx, deps, acct)
		},
	}
}

// rescheduleCycle rotates the cycle key and schedules the next tick.
func rescheduleCycle(ctx context.Context, deps *Deps, acct *core.Account) error {
	now := deps.Clock.Now()
	newKey := uuid.NewString()

	evt := core.NewEvent(core.EventAccountCycle, acct.PhoneNumber, newKey, now)
	if err := deps.enqueueEvent(ctx, evt, deps.CycleDuration); err != nil {
		return fmt.Errorf("enqueue next cycle for %s: %w", acct.ID, err)
	}

	acct.CycleKey = newKey
	if err := deps.Accounts.Update(ctx, acct); err != nil {
		return fmt.Errorf("persist rotated cycle key for %s: %w", acct.ID, err)
	}

	metrics.CycleReschedules.Inc()
	deps.Log.Info("cycle rescheduled",
		zap.String("account", acct.ID),
		zap.Duration("delay", deps.CycleDuration))
	return nil
}

// checkForSabbath is the safety net: when the regular cadence cannot
// guarantee a wake-up before the next Friday sunset, inject a Sabbath
// event timed to land exactly at sunset.
func checkForSabbath(ctx context.Context, deps *Deps, acct *core.Account) error {
	if acct.ZipCode == "" {
		return nil
	}

	loc, err := deps.Locations.Resolve(acct.ZipCode)
	if err != nil {
		return fmt.Errorf("resolve zip %s for account %s: %w", acct.ZipCode, acct.ID, err)
	}

	now := deps.Clock.Now()
	nextSabbath, err := deps.Sun.UpcomingSabbath(ctx, loc, now, 0)
	if err != nil {
		return fmt.Errorf("upcoming sabbath for account %s: %w", acct.ID, err)
	}

	margin := time.Duration(cycleMarginFactor * float64(deps.CycleDuration))
	nextCycle := now.Add(margin)
	if nextCycle.Before(nextSabbath) {
		// The regular cadence will wake us again in time.
		return nil
	}

	evt := core.NewEvent(core.EventSabbath, acct.PhoneNumber, "", now)
	if err := deps.enqueueEvent(ctx, evt, nextSabbath.Sub(now)); err != nil {
		return fmt.Errorf("enqueue sabbath event for %s: %w", acct.ID, err)
	}

	metrics.SabbathScheduled.Inc()
	deps.Log.Info("sabbath event scheduled",
		zap.String("account", acct.ID),
		zap.Time("sabbath_utc", nextSabbath))
	return nil
}

// startCycle begins (or restarts) an account's cycle immediately: a
// fresh key is scheduled with the given delay and then persisted,
// mirroring the reschedule ordering.
func startCycle(ctx context.Context, deps *Deps, acct *core.Account, delay time.Duration) error {
	now := deps.Clock.Now()
	newKey := uuid.NewString()

	evt := core.NewEvent(core.EventAccountCycle, acct.PhoneNumber, newKey, now)
	if err := deps.enqueueEvent(ctx, evt, delay); err != nil {
		return fmt.Errorf("enqueue cycle start for %s: %w", acct.ID, err)
	}

	acct.CycleKey = newKey
	if err := deps.Accounts.Update(ctx, acct); err != nil {
		return fmt.Errorf("persist cycle key for %s: %w", acct.ID, err)
	}
	return nil
}

// cycleKeyParam pulls the cycle key out of an AccountCycle message,
// whether it arrived as a parsed event or as a raw "AccountCycle <key>"
// body.
func cycleKeyParam(msg *core.Message) string {
	if msg.Parameter != "" {
		return msg.Parameter
	}
	fields := strings.Fields(msg.NormalizedBody())
	if len(fields) == 2 {
		return fields[1]
	}
	return ""
}
