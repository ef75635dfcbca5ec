package processor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sluu99/sabbathtext-sub001/internal/core"
	"github.com/sluu99/sabbathtext-sub001/internal/geo"
)

var zipArgRe = regexp.MustCompile(`^(?i)zip(?:code)?\s*(.*)$`)

// NewGreetings handles "Hello": reply with the greeting and enqueue a
// GreetingsRequested event for bookkeeping.
func NewGreetings(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps: deps,
		handle: func(ctx context.Context, acct *core.Account, msg *core.Message) (*core.Message, error) {
			now := deps.Clock.Now()
			evt := core.NewEvent(core.EventGreetingsRequested, acct.PhoneNumber, "", now)
			if err := deps.enqueueEvent(ctx, evt, 0); err != nil {
				deps.Log.Warn("enqueue greetings event", zap.Error(err))
			}
			return core.NewReply(msg.Sender, core.ReplyGreeting, now), nil
		},
	}
}

// NewHelp handles "Help" with the static command list.
func NewHelp(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps: deps,
		handle: func(_ context.Context, _ *core.Account, msg *core.Message) (*core.Message, error) {
			return core.NewReply(msg.Sender, core.ReplyHelp, deps.Clock.Now()), nil
		},
	}
}

// NewSubscribe handles "Subscribe": flip the account to subscribed,
// announce it on the event queue, and either confirm with the upcoming
// Sabbath or prompt for a ZIP code.
func NewSubscribe(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps: deps,
		handle: func(ctx context.Context, acct *core.Account, msg *core.Message) (*core.Message, error) {
			now := deps.Clock.Now()

			acct.Status = core.StatusSubscribed
			if err := deps.Accounts.Update(ctx, acct); err != nil {
				return nil, fmt.Errorf("subscribe account %s: %w", acct.ID, err)
			}

			evt := core.NewEvent(core.EventAccountSubscribed, acct.PhoneNumber, "", now)
			if err := deps.enqueueEvent(ctx, evt, 0); err != nil {
				return nil, fmt.Errorf("enqueue subscribed event: %w", err)
			}

			if acct.ZipCode == "" {
				return core.NewReply(msg.Sender, core.ReplyMissingZipCode, now), nil
			}

			loc, err := deps.Locations.Resolve(acct.ZipCode)
			if err != nil {
				return core.NewReply(msg.Sender, core.ReplyZipCodeNotFound(acct.ZipCode), now), nil
			}
			next, err := deps.Sun.UpcomingSabbath(ctx, loc, now, 0)
			if err != nil {
				return nil, fmt.Errorf("upcoming sabbath for %s: %w", acct.ZipCode, err)
			}
			return core.NewReply(msg.Sender, core.ReplySubscribed(loc.City, loc.State, next.In(loc.TZ())), now), nil
		},
	}
}

// NewUnsubscribe handles "Unsubscribe" from subscribed accounts.
func NewUnsubscribe(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps:               deps,
		subscriberRequired: true,
		handle: func(ctx context.Context, acct *core.Account, msg *core.Message) (*core.Message, error) {
			acct.Status = core.StatusUnsubscribed
			if err := deps.Accounts.Update(ctx, acct); err != nil {
				return nil, fmt.Errorf("unsubscribe account %s: %w", acct.ID, err)
			}
			return core.NewReply(msg.Sender, core.ReplyUnsubscribed, deps.Clock.Now()), nil
		},
	}
}

// NewZipUpdate handles "Zip <code>" / "Zipcode <code>": validate,
// resolve, persist, fire ZipCodeUpdated, and confirm with the computed
// next Sabbath under the new location.
func NewZipUpdate(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps: deps,
		handle: func(ctx context.Context, acct *core.Account, msg *core.Message) (*core.Message, error) {
			now := deps.Clock.Now()

			zip := parseZipArg(msg.NormalizedBody())
			if zip == "" {
				return core.NewReply(msg.Sender, core.ReplyBadZipCode, now), nil
			}

			loc, err := deps.Locations.Resolve(zip)
			if errors.Is(err, geo.ErrUnknownZipCode) {
				return core.NewReply(msg.Sender, core.ReplyZipCodeNotFound(zip), now), nil
			}
			if err != nil {
				return nil, fmt.Errorf("resolve zip %s: %w", zip, err)
			}

			acct.ZipCode = zip
			if err := deps.Accounts.Update(ctx, acct); err != nil {
				return nil, fmt.Errorf("update account %s zip: %w", acct.ID, err)
			}

			// Location changed, so any scheduling derived from the old ZIP
			// is stale; the ZipCodeUpdated handler resets the cycle.
			evt := core.NewEvent(core.EventZipCodeUpdated, acct.PhoneNumber, zip, now)
			if err := deps.enqueueEvent(ctx, evt, 0); err != nil {
				return nil, fmt.Errorf("enqueue zip updated event: %w", err)
			}

			next, err := deps.Sun.UpcomingSabbath(ctx, loc, now, 0)
			if err != nil {
				return nil, fmt.Errorf("upcoming sabbath for %s: %w", zip, err)
			}
			return core.NewReply(msg.Sender, core.ReplyConfirmZipCodeUpdate(loc.City, loc.State, next.In(loc.TZ())), now), nil
		},
	}
}

// NewZipHint handles a bare 5-digit number from a subscriber: they
// probably meant to update their ZIP code.
func NewZipHint(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps:               deps,
		subscriberRequired: true,
		handle: func(_ context.Context, _ *core.Account, msg *core.Message) (*core.Message, error) {
			return core.NewReply(msg.Sender, core.ReplyZipCodeHint(msg.NormalizedBody()), deps.Clock.Now()), nil
		},
	}
}

// NewUnknown is the catch-all: subscribers get a gentle pointer at
// Help, everyone else gets silence.
func NewUnknown(deps *Deps) *accountProcessor {
	return &accountProcessor{
		deps:               deps,
		subscriberRequired: true,
		handle: func(_ context.Context, _ *core.Account, msg *core.Message) (*core.Message, error) {
			return core.NewReply(msg.Sender, core.ReplyUnknownCommand, deps.Clock.Now()), nil
		},
	}
}

// parseZipArg extracts a 5-digit code from a "Zip ..." command, or ""
// when the argument is malformed.
func parseZipArg(body string) string {
	m := zipArgRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	arg := strings.TrimSpace(m[1])
	if len(arg) != 5 {
		return ""
	}
	for _, r := range arg {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return arg
}
