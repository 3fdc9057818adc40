// Command estimator serves the movie revenue form and its JSON API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/inferd/internal/adapters/http/form"
	"github.com/okian/inferd/internal/adapters/http/middleware"
	"github.com/okian/inferd/internal/adapters/http/server"
	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/config"
	"github.com/okian/inferd/pkg/logger"
	"github.com/okian/inferd/pkg/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("estimator: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(metrics.WithSubsystem("estimator"))

	est := service.NewEstimator(
		service.WithEstimatorLogger(logger.Named("estimator")),
		service.WithRevenueArtifactPaths(cfg.Resolve(cfg.RevenueModelPath), cfg.Resolve(cfg.FeaturesPath)),
	)
	if err := est.Start(ctx); err != nil {
		log.Error(ctx, "Model or features not found", logger.Error(err))
		return err
	}

	go server.RunSystemMetrics(ctx)

	mux := http.NewServeMux()
	form.NewHandler(est).Register(ctx, mux)

	handler := middleware.Wrap(mux, middleware.Config{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimitRequests,
		RateWindow:     cfg.RateLimitWindow(),
	})
	return server.New(cfg.EstimatorAddr, handler, server.WithLogger(log)).Run(ctx)
}
