package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avelarsoto/communa-backend/api/routes"
	likessvc "github.com/avelarsoto/communa-backend/internal/likes"
	notificationssvc "github.com/avelarsoto/communa-backend/internal/notifications"
	"github.com/avelarsoto/communa-backend/internal/posts"
	"github.com/avelarsoto/communa-backend/internal/realtime"
	"github.com/avelarsoto/communa-backend/internal/users"
	"github.com/avelarsoto/communa-backend/pkg/auth/session"
	"github.com/avelarsoto/communa-backend/pkg/config"
	"github.com/avelarsoto/communa-backend/pkg/db"
	"github.com/avelarsoto/communa-backend/pkg/logger"
	"github.com/avelarsoto/communa-backend/pkg/metrics"
	"github.com/avelarsoto/communa-backend/pkg/migrate"
	"github.com/avelarsoto/communa-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	realtimeMetrics := metrics.NewRealtimeMetrics(registry)

	hub := realtime.NewHub(realtime.NewRegistry(), logg, realtimeMetrics)
	realtimeHandler := realtime.NewHandler(hub, cfg.JWT, cfg.Realtime, sessionManager, logg)

	usersRepo := users.NewRepository(dbClient.DB())
	postsRepo := posts.NewRepository(dbClient.DB())

	notificationsService, err := notificationssvc.NewService(
		notificationssvc.NewRepository(dbClient.DB()),
		usersRepo,
		hub,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	likesService, err := likessvc.NewService(
		likessvc.NewRepository(dbClient.DB()),
		postsRepo,
		notificationsService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create likes service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			Sessions:        sessionManager,
			Notifications:   notificationsService,
			Likes:           likesService,
			RealtimeHandler: realtimeHandler,
			Metrics:         registry,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := hub.Shutdown(shutdownCtx); err != nil {
			logg.Warn(logg.WithField(shutdownCtx, "error", err.Error()), "realtime shutdown incomplete")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "http shutdown failed", err)
		}
	}
}
