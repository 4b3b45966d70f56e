package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"driver-punch-api-server/config"
	"driver-punch-api-server/internal/api/routes"
	"driver-punch-api-server/internal/app"
	"driver-punch-api-server/internal/database"
	"driver-punch-api-server/internal/logging"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Stores and services
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// 3. Make sure an administrator can sign in
	if _, err := database.SeedAdmin(ctx, a.Users, cfg.Seed, logger); err != nil {
		logger.Error("admin seed failed", "error", err)
		os.Exit(1)
	}

	// 4. Live feed
	go a.RunFeed(ctx)

	// 5. HTTP server
	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		Log:      logger,
		Auth:     a.Auth,
		Drivers:  a.Drivers,
		Punch:    a.Punch,
		Returns:  a.Returns,
		Uploader: uploader(a),
		Hub:      a.Hub,
		Feed:     a.Feed,
		Ping:     a.Ping,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting API server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// uploader avoids handing the router a typed nil when S3 is not configured.
func uploader(a *app.App) routes.Uploader {
	if a.Uploader == nil {
		return nil
	}
	return a.Uploader
}
