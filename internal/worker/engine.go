// Package worker pumps the durable queues: claim a message, hand it to
// its handler, delete on success. Leaving a failed message undeleted is
// the system's only retry mechanism; the visibility timeout brings it
// back.
package worker

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/sluu99/sabbathtext-sub001/internal/metrics"
	"github.com/sluu99/sabbathtext-sub001/internal/processor"
	"github.com/sluu99/sabbathtext-sub001/internal/queue"
)

// Handler consumes one claimed queue message. A nil error deletes the
// message; any other error leaves it for redelivery.
type Handler interface {
	Handle(ctx context.Context, qm *queue.Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, qm *queue.Message) error

func (f HandlerFunc) Handle(ctx context.Context, qm *queue.Message) error { return f(ctx, qm) }

// Options tunes one engine instance.
type Options struct {
	VisibilityTimeout time.Duration // claim window per message
	IdleSleep         time.Duration // sleep when the queue is empty
	PollInterval      time.Duration // cadence while messages flow
	BackoffMin        time.Duration // store-error backoff floor
	BackoffMax        time.Duration // store-error backoff ceiling
	MaxDeliveries     int           // dead-letter threshold; 0 disables
	PoisonLifeSpan    time.Duration // retention in the poison queue
}

// DefaultOptions are sane worker-loop settings for production.
func DefaultOptions() Options {
	return Options{
		VisibilityTimeout: 2 * time.Minute,
		IdleSleep:         300 * time.Millisecond,
		PollInterval:      50 * time.Millisecond,
		BackoffMin:        200 * time.Millisecond,
		BackoffMax:        5 * time.Second,
		MaxDeliveries:     5,
		PoisonLifeSpan:    30 * 24 * time.Hour,
	}
}

// Engine drains one queue. Multiple engine instances may run against
// the same queue concurrently; the queue's visibility-timeout mutual
// exclusion is the only coordination between them.
type Engine struct {
	name   string
	q      queue.Queue
	poison queue.Queue // destination for messages over the delivery cap; may be nil
	h      Handler
	opt    Options
	log    *zap.Logger
}

func NewEngine(name string, q, poison queue.Queue, h Handler, opt Options, log *zap.Logger) *Engine {
	return &Engine{name: name, q: q, poison: poison, h: h, opt: opt, log: log.With(zap.String("queue", name))}
}

// Run polls until ctx is canceled. An in-flight message at shutdown is
// simply not deleted and reappears after its visibility timeout.
func (e *Engine) Run(ctx context.Context) error {
	backoff := e.opt.BackoffMin
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		qm, err := e.q.Get(ctx, e.opt.VisibilityTimeout)
		if err != nil {
			metrics.QueuePolls.WithLabelValues(e.name, "error").Inc()
			sleep := jitter(backoff, 0.20)
			e.log.Warn("queue poll failed", zap.Error(err), zap.Duration("backoff", sleep))
			if !sleepCtx(ctx, sleep) {
				return ctx.Err()
			}
			backoff = minDur(e.opt.BackoffMax, time.Duration(float64(backoff)*1.6))
			continue
		}
		backoff = e.opt.BackoffMin

		if qm == nil {
			metrics.QueuePolls.WithLabelValues(e.name, "empty").Inc()
			if !sleepCtx(ctx, e.opt.IdleSleep) {
				return ctx.Err()
			}
			continue
		}
		metrics.QueuePolls.WithLabelValues(e.name, "ok").Inc()

		e.handleOne(ctx, qm)

		if !sleepCtx(ctx, e.opt.PollInterval) {
			return ctx.Err()
		}
	}
}

func (e *Engine) handleOne(ctx context.Context, qm *queue.Message) {
	if e.opt.MaxDeliveries > 0 && qm.DequeueCount > e.opt.MaxDeliveries {
		e.deadLetter(ctx, qm)
		return
	}

	start := time.Now()
	err := e.h.Handle(ctx, qm)
	metrics.HandleDuration.WithLabelValues(e.name).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		if derr := e.q.Delete(ctx, qm.ID); derr != nil {
			// The message will be redelivered and the handler must cope,
			// which it does: processing is idempotent under retry.
			e.log.Warn("delete after success failed", zap.String("id", qm.ID), zap.Error(derr))
		}
		metrics.MessagesHandled.WithLabelValues(e.name, "ok").Inc()

	case errors.Is(err, processor.ErrValidation):
		// Bad input never gets better; drop instead of retrying.
		e.log.Warn("dropping invalid message", zap.String("id", qm.ID), zap.Error(err))
		if derr := e.q.Delete(ctx, qm.ID); derr != nil {
			e.log.Warn("delete invalid message failed", zap.String("id", qm.ID), zap.Error(derr))
		}
		metrics.MessagesHandled.WithLabelValues(e.name, "dropped").Inc()

	default:
		// Leave undeleted; visibility timeout redelivers.
		e.log.Error("handler failed, message left for redelivery",
			zap.String("id", qm.ID),
			zap.Int("dequeue_count", qm.DequeueCount),
			zap.Error(err))
		metrics.MessagesHandled.WithLabelValues(e.name, "retry").Inc()
	}
}

// deadLetter moves a message that keeps failing onto the poison queue
// so it stops burning redeliveries but stays available for inspection.
func (e *Engine) deadLetter(ctx context.Context, qm *queue.Message) {
	if e.poison != nil {
		if _, err := e.poison.Add(ctx, qm.Body, 0, e.opt.PoisonLifeSpan); err != nil {
			e.log.Error("dead-letter enqueue failed, message stays for redelivery",
				zap.String("id", qm.ID), zap.Error(err))
			return
		}
	}
	if err := e.q.Delete(ctx, qm.ID); err != nil {
		e.log.Warn("delete after dead-letter failed", zap.String("id", qm.ID), zap.Error(err))
	}
	metrics.DeadLettered.WithLabelValues(e.name).Inc()
	e.log.Error("message dead-lettered",
		zap.String("id", qm.ID),
		zap.Int("dequeue_count", qm.DequeueCount))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	delta := int64(float64(d) * frac)
	if delta <= 0 {
		return d
	}
	// random in [-delta, +delta]
	n := rand.Int63n(2*delta+1) - delta
	return d + time.Duration(n)
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
