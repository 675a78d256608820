package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/foodie-storefront/internal/assistant"
	"github.com/jcmexdev/foodie-storefront/internal/catalog"
	"github.com/jcmexdev/foodie-storefront/internal/config"
	"github.com/jcmexdev/foodie-storefront/internal/coordinator/sagalog"
	"github.com/jcmexdev/foodie-storefront/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/foodie-storefront/internal/payment"
	"github.com/jcmexdev/foodie-storefront/internal/pkg/cache"
	"github.com/jcmexdev/foodie-storefront/internal/pkg/metrics"
	"github.com/jcmexdev/foodie-storefront/internal/pkg/telemetry"
	"github.com/jcmexdev/foodie-storefront/internal/session"
	"github.com/jcmexdev/foodie-storefront/internal/storefront/httpx"
)

func main() {
	cfg := config.Load()
	telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	var carts cache.Cache
	if cfg.RedisAddr != "" {
		carts = cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName, cfg.CartTTL)
		slog.Info("cart storage: redis", "addr", cfg.RedisAddr, "ttl", cfg.CartTTL.String())
	} else {
		carts = cache.NewMemoryCache(cfg.ServiceName)
		slog.Info("cart storage: memory")
	}

	var sagaLog sagalog.Repository = sagalog.NewMemoryRepository()
	if cfg.SagaDBPath != "" {
		repo, err := sqlite.Open(cfg.SagaDBPath)
		if err != nil {
			slog.Error("failed to open saga log", "path", cfg.SagaDBPath, "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		sagaLog = repo
	}

	settler := payment.NewSettler(cfg.SettlementDelay, cfg.SettlementLimit)
	sessions := session.NewManager(carts, settler, sagaLog)
	go evictIdle(ctx, sessions, cfg.SessionIdle)

	relay := assistant.NewRelay(assistant.NewInferenceClient(cfg.HFModelURL, cfg.HFAPIKey, nil), cfg.ChatTimeout)
	if cfg.HFAPIKey == "" {
		slog.Warn("HF_API_KEY is not set, assistant replies will fall back")
	}

	srvMetrics := metrics.NewServerMetrics("storefront")
	handler := httpx.NewHandler(cat, sessions, relay, srvMetrics)
	router := httpx.NewRouter(handler, srvMetrics)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
	}()

	slog.Info("storefront running", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("storefront stopped")
}

func evictIdle(ctx context.Context, sessions *session.Manager, idle time.Duration) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sessions.Evict(idle); n > 0 {
				slog.Debug("evicted idle sessions", "count", n, "live", sessions.Len())
			}
		}
	}
}
