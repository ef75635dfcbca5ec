package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sluu99/sabbathtext-sub001/internal/cache"
	"github.com/sluu99/sabbathtext-sub001/internal/clock"
	"github.com/sluu99/sabbathtext-sub001/internal/config"
	"github.com/sluu99/sabbathtext-sub001/internal/geo"
	"github.com/sluu99/sabbathtext-sub001/internal/logx"
	"github.com/sluu99/sabbathtext-sub001/internal/metrics"
	"github.com/sluu99/sabbathtext-sub001/internal/processor"
	"github.com/sluu99/sabbathtext-sub001/internal/provider"
	"github.com/sluu99/sabbathtext-sub001/internal/queue"
	"github.com/sluu99/sabbathtext-sub001/internal/store"
	"github.com/sluu99/sabbathtext-sub001/internal/sun"
	wpkg "github.com/sluu99/sabbathtext-sub001/internal/worker"
)

func main() {
	var exitCode int
	defer func() { os.Exit(exitCode) }()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		exitCode = 1
		return
	}

	log, err := logx.New(cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		exitCode = 1
		return
	}
	defer func() { _ = log.Sync() }()

	rootCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---- DB ----
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.URL)
	if err != nil {
		log.Error("parse postgres url", zap.Error(err))
		exitCode = 1
		return
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)
	pool, err := pgxpool.NewWithConfig(rootCtx, poolCfg)
	if err != nil {
		log.Error("db pool", zap.Error(err))
		exitCode = 1
		return
	}
	defer pool.Close()

	if err := pool.Ping(rootCtx); err != nil {
		log.Error("db ping", zap.Error(err))
		exitCode = 1
		return
	}
	if err := store.ApplyMigrations(rootCtx, pool); err != nil {
		log.Error("migrations", zap.Error(err))
		exitCode = 1
		return
	}

	metrics.MustRegister()
	poolStats := metrics.NewPGXPoolStats(pool)
	stop := make(chan struct{})
	defer close(stop)
	go poolStats.Start(15*time.Second, stop)

	// ---- Queues ----
	inbound := queue.NewPostgres(pool, "inbound")
	inboundPoison := queue.NewPostgres(pool, "inbound-poison")
	events := queue.NewPostgres(pool, "event")
	eventsPoison := queue.NewPostgres(pool, "event-poison")
	outbound := queue.NewPostgres(pool, "outbound")
	outboundPoison := queue.NewPostgres(pool, "outbound-poison")

	// ---- Sunset cache ----
	var sunCache sun.Cache
	if cfg.Redis.Enabled {
		sunsets := cache.NewSunsets(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.TTL, log)
		defer func() { _ = sunsets.Close() }()
		sunCache = sunsets
	}

	// ---- Processors ----
	resolver, err := geo.NewStaticResolver()
	if err != nil {
		log.Error("zip reference data", zap.Error(err))
		exitCode = 1
		return
	}

	deps := &processor.Deps{
		Accounts:      store.NewPostgres(pool),
		Locations:     resolver,
		Sun:           sun.NewCalc(sunCache),
		Events:        events,
		Clock:         clock.Real(),
		Log:           log,
		CycleDuration: cfg.Cycle.Duration,
	}
	rtr := processor.NewRouter(deps)

	// ---- Workers ----
	opt := wpkg.DefaultOptions()
	opt.VisibilityTimeout = cfg.Worker.VisibilityTimeout
	opt.IdleSleep = cfg.Worker.IdleSleep
	opt.PollInterval = cfg.Worker.PollInterval
	opt.BackoffMin = cfg.Worker.BackoffMin
	opt.BackoffMax = cfg.Worker.BackoffMax
	opt.MaxDeliveries = cfg.Worker.MaxDeliveries

	routeHandler := &wpkg.RouteHandler{Router: rtr, Outbound: outbound, Log: log}
	sendHandler := wpkg.NewSendHandler(provider.NewDummy(), wpkg.SendOptions{
		ProviderQPS:   cfg.Provider.QPS,
		ProviderBurst: cfg.Provider.Burst,
		SendTimeout:   cfg.Provider.SendTimeout,
	}, log)

	engines := []*wpkg.Engine{
		wpkg.NewEngine("inbound", inbound, inboundPoison, routeHandler, opt, log),
		wpkg.NewEngine("event", events, eventsPoison, routeHandler, opt, log),
		wpkg.NewEngine("outbound", outbound, outboundPoison, sendHandler, opt, log),
	}

	go serveHealthz(cfg.Server.HealthAddr)

	var wg sync.WaitGroup
	for _, e := range engines {
		wg.Add(1)
		go func(e *wpkg.Engine) {
			defer wg.Done()
			if err := e.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("engine exited", zap.Error(err))
			}
		}(e)
	}
	wg.Wait()
	log.Info("worker stopped")
}

func serveHealthz(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	_ = http.ListenAndServe(addr, mux)
}
