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
	"github.com/qclickin/platform/services/calendar-service/internal/consumer"
	"github.com/qclickin/platform/services/calendar-service/internal/handlers"
	"github.com/qclickin/platform/services/calendar-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadEnvFile()
	service := config.String("SERVICE_NAME", "calendar-service")
	port, err := config.Port("PORT", "8082")
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

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		go consumer.Run(ctx, logger, repo, inbox.NewRepository(pool), brokers, config.String("KAFKA_GROUP_ID", "calendar-service"))
	} else {
		logger.Warn("profile sync disabled (no kafka brokers configured)")
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)

	mux.HandleFunc("POST /api/v1/event-types", httpHandler.CreateEventType)
	mux.HandleFunc("GET /api/v1/event-types", httpHandler.ListEventTypes)
	mux.HandleFunc("GET /api/v1/event-types/{id}", httpHandler.GetEventType)
	mux.HandleFunc("PATCH /api/v1/event-types/{id}", httpHandler.UpdateEventType)
	mux.HandleFunc("DELETE /api/v1/event-types/{id}", httpHandler.DeleteEventType)

	mux.HandleFunc("GET /api/v1/availability/schedule", httpHandler.GetSchedule)
	mux.HandleFunc("PUT /api/v1/availability/schedule", httpHandler.UpdateSchedule)
	mux.HandleFunc("GET /api/v1/availability/overrides", httpHandler.ListOverrides)
	mux.HandleFunc("PUT /api/v1/availability/overrides", httpHandler.SetOverrides)
	mux.HandleFunc("DELETE /api/v1/availability/overrides/{day}", httpHandler.DeleteOverridesForDay)

	mux.HandleFunc("POST /api/v1/teams", httpHandler.CreateTeam)
	mux.HandleFunc("GET /api/v1/teams", httpHandler.ListTeams)
	mux.HandleFunc("GET /api/v1/teams/{id}", httpHandler.GetTeam)
	mux.HandleFunc("DELETE /api/v1/teams/{id}", httpHandler.DeleteTeam)
	mux.HandleFunc("GET /api/v1/teams/{id}/members", httpHandler.ListMembers)
	mux.HandleFunc("POST /api/v1/teams/{id}/members", httpHandler.AddMember)
	mux.HandleFunc("POST /api/v1/teams/{id}/members/accept", httpHandler.AcceptInvite)
	mux.HandleFunc("PATCH /api/v1/teams/{id}/members/{userID}", httpHandler.UpdateMemberRole)
	mux.HandleFunc("DELETE /api/v1/teams/{id}/members/{userID}", httpHandler.RemoveMember)

	mux.HandleFunc("POST /api/v1/organizations", httpHandler.CreateOrganization)
	mux.HandleFunc("GET /api/v1/organizations", httpHandler.ListOrganizations)
	mux.HandleFunc("DELETE /api/v1/organizations/{id}", httpHandler.DeleteOrganization)

	mux.HandleFunc("GET /api/v1/public/{username}", httpHandler.PublicProfile)
	mux.HandleFunc("GET /api/v1/public/{username}/{slug}", httpHandler.PublicEventType)

	mux.HandleFunc("GET /internal/v1/availability-config", httpHandler.AvailabilityConfig)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "calendar")
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

	if err := startGrpcServer(ctx, logger, pool, repo); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
