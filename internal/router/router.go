// Package router maps inbound SMS bodies and internal event types to
// their processors.
package router

import (
	"context"
	"regexp"

	"github.com/sluu99/sabbathtext-sub001/internal/core"
)

// Processor reacts to one message or event, returning at most one
// reply. A nil reply with a nil error means handled silently.
type Processor interface {
	Process(ctx context.Context, msg *core.Message) (*core.Message, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, msg *core.Message) (*core.Message, error)

func (f ProcessorFunc) Process(ctx context.Context, msg *core.Message) (*core.Message, error) {
	return f(ctx, msg)
}

type entry struct {
	event core.EventType // exact event-type match when non-empty
	re    *regexp.Regexp // case-insensitive body pattern otherwise
	proc  Processor
}

// Router holds an ordered matcher table. Registration order is part of
// the contract: the first matching entry wins, and the catch-all runs
// when nothing matches.
type Router struct {
	entries  []entry
	catchAll Processor
}

func New() *Router { return &Router{} }

// HandleEvent registers a processor for an exact event type.
func (r *Router) HandleEvent(evt core.EventType, p Processor) *Router {
	r.entries = append(r.entries, entry{event: evt, proc: p})
	return r
}

// HandleBody registers a processor for a case-insensitive body pattern.
// The pattern is anchored to the whole trimmed body.
func (r *Router) HandleBody(pattern string, p Processor) *Router {
	re := regexp.MustCompile(`(?i)^(?:` + pattern + `)$`)
	r.entries = append(r.entries, entry{re: re, proc: p})
	return r
}

// CatchAll sets the fallback processor for unmatched messages.
func (r *Router) CatchAll(p Processor) *Router {
	r.catchAll = p
	return r
}

// Route dispatches the message to the first matching processor.
func (r *Router) Route(ctx context.Context, msg *core.Message) (*core.Message, error) {
	body := msg.NormalizedBody()
	for _, e := range r.entries {
		switch {
		case e.event != "":
			if msg.EventType == e.event {
				return e.proc.Process(ctx, msg)
			}
		case e.re.MatchString(body):
			return e.proc.Process(ctx, msg)
		}
	}
	if r.catchAll != nil {
		return r.catchAll.Process(ctx, msg)
	}
	return nil, nil
}
