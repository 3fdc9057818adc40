// Command recommender serves top-N book recommendations over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/inferd/internal/adapters/http/api"
	"github.com/okian/inferd/internal/adapters/http/middleware"
	"github.com/okian/inferd/internal/adapters/http/server"
	"github.com/okian/inferd/internal/adapters/http/swagger"
	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/config"
	"github.com/okian/inferd/pkg/logger"
	"github.com/okian/inferd/pkg/metrics"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("recommender: " + err.Error() + "\n")
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

	metrics.Init(metrics.WithSubsystem("recommender"))

	rec := service.New(
		service.WithLogger(logger.Named("recommender")),
		service.WithArtifactPaths(cfg.Resolve(cfg.ModelPath), cfg.Resolve(cfg.CatalogPath)),
		service.WithTopN(cfg.TopN),
		service.WithScoringWorkers(cfg.ScoringWorkers),
		service.WithScoringChunkSize(cfg.ScoringChunkSize),
		service.WithSerializedScoring(cfg.SerializeScoring),
		service.WithExcludeInteracted(cfg.ExcludeInteracted),
		service.WithCacheSize(cfg.CacheSize),
		service.WithTimeout(cfg.RecommendTimeout()),
	)
	// Artifact load failure is terminal: no request is accepted without them.
	if err := rec.Start(ctx); err != nil {
		log.Error(ctx, "failed to load recommender artifacts", logger.Error(err))
		return err
	}
	defer rec.Stop()

	go server.RunSystemMetrics(ctx)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(rec, rec, api.WithServiceName(cfg.ServiceName)).Register(ctx, mux)

	handler := middleware.Wrap(mux, middleware.Config{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimitRequests,
		RateWindow:     cfg.RateLimitWindow(),
	})
	return server.New(cfg.Addr, handler, server.WithLogger(log)).Run(ctx)
}
