package metrics

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// API
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests."},
		[]string{"handler", "method", "code"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms..~10s
		},
		[]string{"handler", "method"},
	)
	WebhookInbound = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_inbound_total", Help: "Inbound SMS webhook results."},
		[]string{"result"}, // ok | bad_request | error
	)

	// Queue workers
	QueuePolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "queue_polls_total", Help: "Queue poll outcomes."},
		[]string{"queue", "result"}, // ok | empty | error
	)
	MessagesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "queue_messages_handled_total", Help: "Handled queue messages."},
		[]string{"queue", "result"}, // ok | retry | dropped
	)
	DeadLettered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "queue_dead_lettered_total", Help: "Messages moved to the poison queue."},
		[]string{"queue"},
	)
	HandleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_handle_duration_seconds",
			Help:    "Message handling latency.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"queue"},
	)

	// Scheduler
	CycleReschedules = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cycle_reschedules_total", Help: "Live cycle ticks that rotated the key."})
	CycleTicksStale = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cycle_ticks_stale_total", Help: "Cycle ticks ignored as stale or initial."})
	SabbathScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sabbath_events_scheduled_total", Help: "Safety-net Sabbath events enqueued."})
	SabbathSends = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sabbath_messages_sent_total", Help: "Sabbath reminders composed."})
	SabbathDuplicates = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sabbath_duplicate_deliveries_total", Help: "Sabbath events arriving under the 5-day gap."})

	// Outbound transport
	ProviderSendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "provider_send_total", Help: "Provider send outcomes."},
		[]string{"outcome"}, // sent | temp_fail
	)
	ProviderSendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provider_send_duration_seconds",
			Help:    "Provider send latency.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms..~40s
		},
	)
)

// Register default + our collectors
func MustRegister() {
	prometheus.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		HTTPRequests, HTTPDuration, WebhookInbound,
		QueuePolls, MessagesHandled, DeadLettered, HandleDuration,
		CycleReschedules, CycleTicksStale, SabbathScheduled, SabbathSends, SabbathDuplicates,
		ProviderSendTotal, ProviderSendDuration,
	)
}

// PGXPoolStats is a tiny pgxpool stats exporter.
type PGXPoolStats struct {
	pool *pgxpool.Pool

	conns          prometheus.Gauge
	idle           prometheus.Gauge
	acquireCount   prometheus.Counter
	acquireLatency prometheus.Counter
}

func NewPGXPoolStats(pool *pgxpool.Pool) *PGXPoolStats {
	m := &PGXPoolStats{
		pool: pool,
		conns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_conns", Help: "Total connections in pool.",
		}),
		idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_idle_conns", Help: "Idle connections in pool.",
		}),
		acquireCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_pool_acquires_total", Help: "Total pool acquires.",
		}),
		acquireLatency: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_pool_acquire_seconds_total", Help: "Sum of acquire latencies.",
		}),
	}
	prometheus.MustRegister(m.conns, m.idle, m.acquireCount, m.acquireLatency)

	return m
}

func (m *PGXPoolStats) Start(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	for {
		select {
		case <-stop:
			t.Stop()
			return
		case <-t.C:
			s := m.pool.Stat()
			m.conns.Set(float64(s.TotalConns()))
			m.idle.Set(float64(s.IdleConns()))
			m.acquireCount.Add(float64(s.AcquireCount()))
			m.acquireLatency.Add(s.AcquireDuration().Seconds())
		}
	}
}
