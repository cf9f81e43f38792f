package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/pkg/middleware"
	contactroutes "github.com/Ramsey-B/fern/pkg/routes/contacts"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cfg, logger := cc.config, cc.logger

			shutdownTracing, err := tracing.Setup(ctx, cfg.AppName, version, cfg.OTLP())
			if err != nil {
				return fmt.Errorf("failed to set up tracing: %w", err)
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.WithError(err).Warn("Failed to flush traces")
				}
			}()

			a := newApp(cfg, logger, true)
			if err := a.start(ctx); err != nil {
				return err
			}
			defer a.stop(context.Background())

			checker := newChecker(a)
			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Port),
				Handler:      newServer(a, checker),
				ReadTimeout:  time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
				WriteTimeout: time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
				IdleTimeout:  time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()
			checker.SetReady(true)
			logger.WithFields(map[string]any{
				"port":         cfg.Port,
				"version":      version,
				"db_driver":    cfg.DatabaseDriver,
				"lock_backend": cfg.LockBackend,
				"events":       cfg.EventsEnabled,
			}).Info("Serving contacts API")

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			checker.SetReady(false)
			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func newChecker(a *app) *health.Checker {
	var redisPinger health.Pinger
	if a.redis != nil {
		redisPinger = health.PingerFunc(a.redis.Ping)
	}
	return health.NewChecker(a.db, redisPinger, version)
}

// newServer assembles the echo instance: middleware, metrics and the v1 routes
func newServer(a *app, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	checker.RegisterRoutes(api)
	contactroutes.NewHandler(a.service, a.logger).RegisterRoutes(api)

	return e
}
