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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"veriseal/internal/custody/handler"
	"veriseal/internal/platform/config"
	"veriseal/internal/platform/httpserver"
	"veriseal/internal/platform/logger"
	platformmetrics "veriseal/internal/platform/metrics"
	"veriseal/pkg/platform/httputil"
	"veriseal/pkg/platform/middleware/metadata"
	"veriseal/pkg/platform/middleware/operator"
	"veriseal/pkg/platform/middleware/request"
	"veriseal/pkg/platform/middleware/requesttime"
)

// main loads configuration and runs the custody API until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("veriseal stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.UsesDevSigningKey() {
		log.Warn("using the development disclosure signing key; set DISCLOSURE_SIGNING_KEY")
	}

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	router := chi.NewRouter()
	router.Use(request.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(platformmetrics.New().Middleware)

	handler.New(app.custody, app.reports, app.recipients, app.disclosure, log).
		Register(router, operator.Require(cfg.Server.OperatorToken, log))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := app.health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting veriseal", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down veriseal")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.IntegritySweepInterval > 0 {
		g.Go(func() error {
			sweepLedgers(gctx, app, cfg.IntegritySweepInterval, log)
			return nil
		})
	}
	return g.Wait()
}

// sweepLedgers re-verifies every ledger on a fixed interval until ctx ends.
func sweepLedgers(ctx context.Context, app *application, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			broken, err := app.custody.SweepIntegrity(ctx)
			if err != nil {
				log.WarnContext(ctx, "ledger integrity sweep failed", "error", err)
				continue
			}
			if len(broken) > 0 {
				log.ErrorContext(ctx, "ledger integrity sweep found broken chains", "count", len(broken))
			}
		}
	}
}
