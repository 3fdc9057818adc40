// Package service composes the domain packages into the two services the
// HTTP adapters serve: the book Recommender and the revenue Estimator.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/okian/inferd/internal/domain/ranking"
	"github.com/okian/inferd/internal/domain/scoring"
	"github.com/okian/inferd/pkg/logger"
	"github.com/okian/inferd/pkg/metrics"
)

// Recommendation outcomes recorded in metrics.
const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeInconsistent = "inconsistent"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

// Option applies a configuration option to the Recommender.
type Option func(*Recommender)

// WithLogger sets a custom logger for the recommender.
func WithLogger(l logger.Logger) Option {
	return func(r *Recommender) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithArtifactPaths sets where Start loads the model and catalog from.
func WithArtifactPaths(modelPath, catalogPath string) Option {
	return func(r *Recommender) {
		r.modelPath = modelPath
		r.catalogPath = catalogPath
	}
}

// WithArtifacts supplies already loaded artifacts; Start skips loading.
func WithArtifacts(a *Artifacts) Option {
	return func(r *Recommender) {
		r.artifacts = a
	}
}

// WithTopN sets the recommendation list length.
func WithTopN(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.topN = n
		}
	}
}

// WithScoringWorkers bounds the scoring goroutines per request.
func WithScoringWorkers(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithScoringChunkSize sets the candidates scored between deadline checks.
func WithScoringChunkSize(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// WithSerializedScoring wraps the scorer in a lock.
func WithSerializedScoring(on bool) Option {
	return func(r *Recommender) {
		r.serialize = on
	}
}

// WithExcludeInteracted drops already rated items from the candidates.
func WithExcludeInteracted(on bool) Option {
	return func(r *Recommender) {
		r.excludeInteracted = on
	}
}

// WithCacheSize bounds the result cache in entries. Zero disables it.
func WithCacheSize(n int) Option {
	return func(r *Recommender) {
		if n >= 0 {
			r.cacheSize = n
		}
	}
}

// WithTimeout sets the per-request scoring deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Recommender) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// Recommender serves top-N titles per user from immutable artifacts.
type Recommender struct {
	mu sync.RWMutex

	artifacts *Artifacts
	ranker    *ranking.Ranker
	cache     *ristretto.Cache[int64, []string]

	modelPath         string
	catalogPath       string
	topN              int
	workers           int
	chunkSize         int
	serialize         bool
	excludeInteracted bool
	cacheSize         int
	timeout           time.Duration

	started bool
	logger  logger.Logger
}

// New constructs a Recommender with default configuration.
func New(opts ...Option) *Recommender {
	r := &Recommender{
		topN:      ranking.DefaultTopN,
		workers:   runtime.NumCPU(),
		chunkSize: 2048,
		cacheSize: 10_000,
		timeout:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start loads the artifacts, unless supplied, and builds the ranker.
func (r *Recommender) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}
	if r.logger == nil {
		r.logger = logger.Named("recommender")
	}

	if r.artifacts == nil {
		a, err := LoadArtifacts(ctx, r.logger, r.modelPath, r.catalogPath)
		if err != nil {
			return err
		}
		r.artifacts = a
	}

	var scorer scoring.Scorer = r.artifacts.Scorer
	if r.serialize {
		scorer = scoring.NewLocked(scorer)
	}
	r.ranker = ranking.New(scorer, r.artifacts.Catalog,
		ranking.WithTopN(r.topN),
		ranking.WithWorkers(r.workers),
		ranking.WithChunkSize(r.chunkSize),
		ranking.WithExcludeInteracted(r.excludeInteracted),
		ranking.WithScoredHook(metrics.AddItemsScored),
	)

	if r.cacheSize > 0 {
		c, err := ristretto.NewCache(&ristretto.Config[int64, []string]{
			NumCounters:        int64(r.cacheSize) * 10,
			MaxCost:            int64(r.cacheSize),
			BufferItems:        64,
			Metrics:            true,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return fmt.Errorf("create result cache: %w", err)
		}
		r.cache = c
	}

	r.started = true
	r.logger.Info(ctx, "recommender started",
		logger.Int("topN", r.topN),
		logger.Int("workers", r.workers),
		logger.Int("chunkSize", r.chunkSize),
		logger.Bool("serialized", r.serialize),
		logger.Bool("excludeInteracted", r.excludeInteracted),
		logger.Int("cacheSize", r.cacheSize),
	)
	return nil
}

// Stop releases the result cache.
func (r *Recommender) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}
	if r.cache != nil {
		r.cache.Close()
		r.cache = nil
	}
	r.started = false
	r.logger.Info(context.Background(), "recommender stopped")
}

// Ready reports whether Start completed.
func (r *Recommender) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}

// Recommend returns the top-N titles for user, most preferred first.
// Errors wrap ranking.ErrUserNotFound, ranking.ErrInconsistentArtifacts,
// context.DeadlineExceeded or ErrNotReady.
func (r *Recommender) Recommend(ctx context.Context, user int64) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.started {
		metrics.RecordRecommendation(OutcomeError)
		return nil, ErrNotReady
	}

	if r.cache != nil {
		if titles, ok := r.cache.Get(user); ok {
			metrics.RecordCacheHit()
			metrics.RecordRecommendation(OutcomeOK)
			return slices.Clone(titles), nil
		}
		metrics.RecordCacheMiss()
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	titles, err := r.ranker.Recommend(ctx, user)
	metrics.RecordRecommendationLatency(msSince(start))
	if err != nil {
		outcome := classify(err)
		metrics.RecordRecommendation(outcome)
		if outcome != OutcomeNotFound {
			metrics.RecordErrorByComponent("recommender", outcome)
		}
		return nil, err
	}
	metrics.RecordRecommendation(OutcomeOK)

	if r.cache != nil {
		r.cache.Set(user, slices.Clone(titles), 1)
	}
	return titles, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ranking.ErrUserNotFound):
		return OutcomeNotFound
	case errors.Is(err, ranking.ErrInconsistentArtifacts):
		return OutcomeInconsistent
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// Flush blocks until pending cache writes are visible. Mostly for tests.
func (r *Recommender) Flush() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cache != nil {
		r.cache.Wait()
	}
}

// GetStats returns recommender statistics for monitoring.
func (r *Recommender) GetStats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           r.started,
		"topN":              r.topN,
		"workers":           r.workers,
		"chunkSize":         r.chunkSize,
		"serialized":        r.serialize,
		"excludeInteracted": r.excludeInteracted,
		"cacheSize":         r.cacheSize,
	}
	if !r.started {
		return stats
	}

	stats["catalogItems"] = len(r.artifacts.Catalog.IDs())
	if m, ok := r.artifacts.Scorer.(*scoring.MatrixFactorization); ok {
		stats["modelUsers"] = m.Users()
		stats["modelItems"] = m.Items()
		stats["modelFactors"] = m.Factors()
		stats["modelVersion"] = m.Version()
	}
	if r.cache != nil {
		stats["cacheHits"] = r.cache.Metrics.Hits()
		stats["cacheMisses"] = r.cache.Metrics.Misses()
	}
	return stats
}
