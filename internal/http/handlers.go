package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sluu99/sabbathtext-sub001/internal/clock"
	"github.com/sluu99/sabbathtext-sub001/internal/core"
	"github.com/sluu99/sabbathtext-sub001/internal/metrics"
	"github.com/sluu99/sabbathtext-sub001/internal/queue"
)

// Inbound messages the pipeline has not picked up within a day are
// stale.
const inboundLifeSpan = 24 * time.Hour

// Server is the thin HTTP glue in front of the pipeline: the provider
// webhook drops inbound SMS onto the inbound queue and everything else
// is operational surface.
type Server struct {
	Inbound queue.Queue
	Clock   clock.Clock
	Log     *zap.Logger
	Pool    *pgxpool.Pool // readiness probe only; may be nil
}

func NewServer(inbound queue.Queue, clk clock.Clock, log *zap.Logger, pool *pgxpool.Pool) *Server {
	return &Server{Inbound: inbound, Clock: clk, Log: log, Pool: pool}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, instrument)

	r.Post("/webhook/sms", s.inboundSMS)
	s.mountHealth(r)
	s.mountMetrics(r)
	s.mountDocs(r)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// inboundSMS accepts the transport provider's inbound callback and
// enqueues the message for the inbound worker.
func (s *Server) inboundSMS(w http.ResponseWriter, r *http.Request) {
	var in struct {
		From       string `json:"from"`
		To         string `json:"to"`
		Body       string `json:"body"`
		ExternalID string `json:"external_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.From == "" || in.Body == "" {
		metrics.WebhookInbound.WithLabelValues("bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	msg := core.NewInbound(in.From, in.To, in.Body, s.Clock.Now())
	msg.ExternalID = in.ExternalID

	body, err := msg.Encode()
	if err != nil {
		metrics.WebhookInbound.WithLabelValues("error").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if _, err := s.Inbound.Add(r.Context(), body, 0, inboundLifeSpan); err != nil {
		metrics.WebhookInbound.WithLabelValues("error").Inc()
		s.Log.Error("enqueue inbound sms", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "enqueue_failed"})
		return
	}

	metrics.WebhookInbound.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusAccepted, map[string]string{"id": msg.ID})
}
