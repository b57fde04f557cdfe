package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/talkflow/webhookq/internal/api"
	"github.com/talkflow/webhookq/internal/config"
	"github.com/talkflow/webhookq/internal/handlers"
	"github.com/talkflow/webhookq/internal/queue/processor"
	pgstore "github.com/talkflow/webhookq/internal/queue/store/postgres"
	"github.com/talkflow/webhookq/internal/queue/sweeper"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DBConnectionTimeout)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(connectCtx); err != nil {
		log.Fatalf("pgx ping: %v", err)
	}

	store := pgstore.New(pool)

	proc := processor.New(store, processor.Dispatch{
		Message: downstreamHandler(cfg.MessageWebhookURL, cfg.HandlerTimeout),
		Status:  downstreamHandler(cfg.StatusWebhookURL, cfg.HandlerTimeout),
	}, processor.Config{
		BatchSize:      cfg.BatchSize,
		MaxAttempts:    cfg.MaxAttempts,
		HandlerTimeout: cfg.HandlerTimeout,
	})

	runner := processor.NewRunner(proc, cfg.ProcessInterval)
	go runner.Start(ctx)

	swp := sweeper.New(store, cfg.SweepInterval, cfg.ClaimTimeout, cfg.MaxAttempts)
	go swp.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpSrv := api.NewServer(addr, store, proc, runner.Wake)

	log.Printf("HTTP server listening on %s", addr)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

func downstreamHandler(url string, timeout time.Duration) handlers.Handler {
	if url == "" {
		return handlers.Discard
	}
	return handlers.NewForwarder(url, timeout)
}
