package main

import (
	"context"
	"net/http"
	"time"

	"github.com/qclickin/platform/libs/config"
	"github.com/qclickin/platform/libs/db"
	"github.com/qclickin/platform/libs/httpx"
	"github.com/qclickin/platform/libs/inbox"
	"github.com/qclickin/platform/libs/kafkax"
	otelx "github.com/qclickin/platform/libs/otel"
	"github.com/qclickin/platform/libs/runtime"
	"github.com/qclickin/platform/services/webhook-service/internal/consumer"
	"github.com/qclickin/platform/services/webhook-service/internal/dispatch"
	"github.com/qclickin/platform/services/webhook-service/internal/handlers"
	"github.com/qclickin/platform/services/webhook-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadEnvFile()
	service := config.String("SERVICE_NAME", "webhook-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool)
	httpHandler := handlers.New(repo)

	retryBackoff := config.Int("DELIVERY_RETRY_BACKOFF_SECONDS", 30)
	worker := dispatch.NewWorker(pool, repo, logger, dispatch.WorkerConfig{
		Interval: 2 * time.Second,
		Backoff:  time.Duration(retryBackoff) * time.Second,
	})
	go worker.Run(ctx)

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		go consumer.Run(ctx, logger, repo, inbox.NewRepository(pool), brokers, config.String("KAFKA_GROUP_ID", "webhook-service"))
	} else {
		logger.Warn("event fan-out disabled (no kafka brokers configured)")
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)

	mux.HandleFunc("POST /api/v1/webhooks", httpHandler.Create)
	mux.HandleFunc("GET /api/v1/webhooks", httpHandler.List)
	mux.HandleFunc("GET /api/v1/webhooks/{id}", httpHandler.Get)
	mux.HandleFunc("PATCH /api/v1/webhooks/{id}", httpHandler.Update)
	mux.HandleFunc("DELETE /api/v1/webhooks/{id}", httpHandler.Delete)
	mux.HandleFunc("GET /api/v1/webhooks/{id}/deliveries", httpHandler.ListDeliveries)
	mux.HandleFunc("POST /api/v1/webhooks/{id}/test", httpHandler.Test)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "webhook")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
