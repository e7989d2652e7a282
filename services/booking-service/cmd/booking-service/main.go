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
	"github.com/qclickin/platform/services/booking-service/internal/consumer"
	"github.com/qclickin/platform/services/booking-service/internal/handlers"
	"github.com/qclickin/platform/services/booking-service/internal/scheduling"
	"github.com/qclickin/platform/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadEnvFile()
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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

	repo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	schedulingProvider, err := scheduling.NewProvider(
		config.String("CALENDAR_HTTP_ADDR", "http://calendar-service:8082"),
		config.String("CALENDAR_GRPC_ADDR", ""),
	)
	if err != nil {
		logger.Error("scheduling provider init failed", "err", err)
		panic(err)
	}

	var slotCache handlers.SlotCache
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		slotCache = handlers.NewRedisSlotCache(redis.NewClient(&redis.Options{Addr: redisAddr}))
	} else {
		logger.Warn("slot cache disabled (no redis configured)")
	}

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	if brokers != "" {
		go consumer.Run(ctx, logger, repo, inbox.NewRepository(pool), brokers, config.String("KAFKA_GROUP_ID", "booking-service"))
	}

	bookingHandler := handlers.NewBookingHandler(repo, outboxRepo, logger, schedulingProvider, slotCache)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)

	mux.HandleFunc("GET /api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("POST /api/v1/public/bookings", bookingHandler.Create)

	mux.HandleFunc("GET /api/v1/bookings", bookingHandler.List)
	mux.HandleFunc("GET /api/v1/bookings/stats", bookingHandler.Stats)
	mux.HandleFunc("GET /api/v1/bookings/stats/event-types", bookingHandler.EventTypeStats)
	mux.HandleFunc("GET /api/v1/bookings/{uid}", bookingHandler.Get)
	mux.HandleFunc("POST /api/v1/bookings/{uid}/confirm", bookingHandler.Confirm)
	mux.HandleFunc("POST /api/v1/bookings/{uid}/reject", bookingHandler.Reject)
	mux.HandleFunc("POST /api/v1/bookings/{uid}/cancel", bookingHandler.Cancel)
	mux.HandleFunc("POST /api/v1/bookings/{uid}/reschedule", bookingHandler.Reschedule)
	mux.HandleFunc("GET /api/v1/bookings/{uid}/attendees", bookingHandler.Attendees)
	mux.HandleFunc("PATCH /api/v1/bookings/{uid}/attendees/{attendeeID}", bookingHandler.UpdateAttendee)
	mux.HandleFunc("POST /api/v1/bookings/{uid}/attendees/no-show", bookingHandler.MarkNoShow)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "booking")
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
