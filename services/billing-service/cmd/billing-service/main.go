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
	"github.com/qclickin/platform/libs/outbox"
	"github.com/qclickin/platform/libs/runtime"
	"github.com/qclickin/platform/services/billing-service/internal/consumer"
	"github.com/qclickin/platform/services/billing-service/internal/handlers"
	"github.com/qclickin/platform/services/billing-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadEnvFile()
	service := config.String("SERVICE_NAME", "billing-service")
	port, err := config.Port("PORT", "8086")
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
	outboxRepo := outbox.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	if brokers != "" {
		go consumer.Run(ctx, logger, repo, inbox.NewRepository(pool), brokers, config.String("KAFKA_GROUP_ID", "billing-service"))
	} else {
		logger.Warn("billable booking sync disabled (no kafka brokers configured)")
	}

	tolerance := config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)
	httpHandler := handlers.New(repo, outboxRepo, logger, handlers.Config{
		StripeSecretKey:               config.String("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:           config.String("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookToleranceSeconds: tolerance,
	})

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("POST /api/v1/billing/payment-intents", httpHandler.CreatePaymentIntent)
	mux.HandleFunc("GET /api/v1/billing/payments", httpHandler.ListPayments)
	mux.HandleFunc("POST /api/v1/billing/webhooks/stripe", httpHandler.StripeWebhook)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "billing")
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
