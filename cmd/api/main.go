package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sluu99/sabbathtext-sub001/internal/clock"
	"github.com/sluu99/sabbathtext-sub001/internal/config"
	httpapi "github.com/sluu99/sabbathtext-sub001/internal/http"
	"github.com/sluu99/sabbathtext-sub001/internal/logx"
	"github.com/sluu99/sabbathtext-sub001/internal/metrics"
	"github.com/sluu99/sabbathtext-sub001/internal/queue"
	"github.com/sluu99/sabbathtext-sub001/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logx.New(cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	rootCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---- DB ----
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.URL)
	if err != nil {
		log.Fatal("parse postgres url", zap.Error(err))
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)
	pool, err := pgxpool.NewWithConfig(rootCtx, poolCfg)
	if err != nil {
		log.Fatal("db pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(rootCtx); err != nil {
		log.Fatal("db ping", zap.Error(err))
	}
	if err := store.ApplyMigrations(rootCtx, pool); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}

	metrics.MustRegister()
	inbound := queue.NewPostgres(pool, "inbound")

	srv := httpapi.NewServer(inbound, clock.Real(), log, pool)
	server := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("http listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-rootCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	log.Info("api stopped")
}
