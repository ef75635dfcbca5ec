package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sluu99/sabbathtext-sub001/internal/core"
	"github.com/sluu99/sabbathtext-sub001/internal/metrics"
	"github.com/sluu99/sabbathtext-sub001/internal/processor"
	"github.com/sluu99/sabbathtext-sub001/internal/provider"
	"github.com/sluu99/sabbathtext-sub001/internal/queue"
	"github.com/sluu99/sabbathtext-sub001/internal/router"
)

// Outbound replies that cannot be delivered within two days are stale.
const outboundLifeSpan = 2 * 24 * time.Hour

// RouteHandler decodes a queued message and dispatches it through the
// router; a reply goes onto the outbound queue. Used for both the
// inbound and event queues.
type RouteHandler struct {
	Router   *router.Router
	Outbound queue.Queue
	Log      *zap.Logger
}

func (h *RouteHandler) Handle(ctx context.Context, qm *queue.Message) error {
	msg, err := core.DecodeMessage(qm.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", processor.ErrValidation, err)
	}

	reply, err := h.Router.Route(ctx, msg)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}

	body, err := reply.Encode()
	if err != nil {
		return err
	}
	if _, err := h.Outbound.Add(ctx, body, 0, outboundLifeSpan); err != nil {
		return fmt.Errorf("enqueue reply: %w", err)
	}
	return nil
}

// SendOptions tunes the outbound sender.
type SendOptions struct {
	ProviderQPS   float64 // sustained provider rate
	ProviderBurst int     // burst to allow short spikes
	SendTimeout   time.Duration
}

// SendHandler drains the outbound queue into the SMS transport. The
// rate limiter is global for this worker process.
type SendHandler struct {
	Provider provider.Provider
	Limiter  *rate.Limiter
	Timeout  time.Duration
	Log      *zap.Logger
}

func NewSendHandler(p provider.Provider, opt SendOptions, log *zap.Logger) *SendHandler {
	return &SendHandler{
		Provider: p,
		Limiter:  rate.NewLimiter(rate.Limit(opt.ProviderQPS), opt.ProviderBurst),
		Timeout:  opt.SendTimeout,
		Log:      log,
	}
}

func (h *SendHandler) Handle(ctx context.Context, qm *queue.Message) error {
	msg, err := core.DecodeMessage(qm.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", processor.ErrValidation, err)
	}
	if msg.Recipient == "" {
		return fmt.Errorf("%w: outbound message %s has no recipient", processor.ErrValidation, msg.ID)
	}

	if err := h.Limiter.Wait(ctx); err != nil {
		return err // context canceled; message redelivers
	}

	cctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	start := time.Now()
	providerID, err := h.Provider.Send(cctx, msg.Recipient, msg.Body)
	metrics.ProviderSendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderSendTotal.WithLabelValues("temp_fail").Inc()
		return fmt.Errorf("provider send: %w", err)
	}

	metrics.ProviderSendTotal.WithLabelValues("sent").Inc()
	h.Log.Info("sms sent",
		zap.String("message_id", msg.ID),
		zap.String("provider_id", providerID))
	return nil
}
