package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/storekit/promoflow/internal/api"
	"github.com/storekit/promoflow/internal/channel"
	"github.com/storekit/promoflow/internal/config"
	"github.com/storekit/promoflow/internal/coupon"
	"github.com/storekit/promoflow/internal/dispatch"
	"github.com/storekit/promoflow/internal/engine"
	"github.com/storekit/promoflow/internal/metrics"
	"github.com/storekit/promoflow/internal/store"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to server YAML config")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	// .env is optional, mainly for local development.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using environment as-is")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// ── Rule store ────────────────────────────────────────────────────────────
	rules, err := store.Open(cfg.Store.DSN)
	if err != nil {
		slog.Error("failed to open rule store", "err", err)
		os.Exit(1)
	}
	slog.Info("rule store ready", "dsn", cfg.Store.DSN)

	// ── Coupon catalog + hot reload ──────────────────────────────────────────
	coupons, err := coupon.NewCatalog(cfg.Coupons.Path)
	if err != nil {
		slog.Error("failed to load coupon catalog", "err", err)
		os.Exit(1)
	}
	metrics.CouponsLoaded.Set(float64(coupons.Len()))
	coupons.OnChange(func(count int) {
		metrics.CouponsLoaded.Set(float64(count))
		slog.Info("coupon catalog reloaded", "coupons", count)
	})
	stopWatch, err := coupons.Watch()
	if err != nil {
		slog.Warn("coupon watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}
	slog.Info("coupon catalog loaded", "coupons", coupons.Len())

	// ── Channel senders ──────────────────────────────────────────────────────
	senders := channel.NewRegistry()
	senders.Register(channel.NewEmail(logger))
	senders.Register(channel.NewTelegram(logger))
	senders.Register(channel.NewInApp(logger))
	senders.Register(channel.NewWebhook(
		cfg.Channels.WebhookURL,
		time.Duration(cfg.Channels.WebhookTimeoutMs)*time.Millisecond,
		cfg.Channels.WebhookRatePerSec,
		cfg.Channels.WebhookBurst,
	))

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := dispatch.New(coupons, senders, logger)
	eng := engine.New(ctx, rules, d, cfg.Engine, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(eng, rules, coupons)
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop worker pool
	eng.Shutdown()
	slog.Info("goodbye")
}
