package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/api"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/config"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/database"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/logging"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/middleware"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/store"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/wallclock"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eventsapi: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("eventsapi stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	h := api.NewEventHandler(
		store.NewEventStore(db),
		validate.New(wallclock.SystemClock),
		logger.With("component", "api"),
	)
	router := api.NewRouter(h, cfg.Server.Prefix, cfg.Server.CORSOrigins)

	var handler http.Handler = router
	handler = middleware.RequestLogger(logger.With("component", "http"))(handler)
	handler = middleware.RequestID(handler)

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("eventsapi listening", "addr", cfg.Server.Listen, "prefix", cfg.Server.Prefix, "db", cfg.Server.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
