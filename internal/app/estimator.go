package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/inferd/internal/domain/features"
	"github.com/okian/inferd/internal/domain/regression"
	"github.com/okian/inferd/pkg/logger"
	"github.com/okian/inferd/pkg/metrics"
)

// Prediction outcomes recorded in metrics.
const (
	PredictionOK      = "ok"
	PredictionInvalid = "invalid"
	PredictionError   = "error"
)

// Estimate is one revenue prediction.
type Estimate struct {
	Revenue   float64 `json:"revenue"`
	Formatted string  `json:"formatted"`
}

// EstimatorOption applies a configuration option to the Estimator.
type EstimatorOption func(*Estimator)

// WithEstimatorLogger sets a custom logger for the estimator.
func WithEstimatorLogger(l logger.Logger) EstimatorOption {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRevenueArtifactPaths sets where Start loads the model and feature list from.
func WithRevenueArtifactPaths(modelPath, featuresPath string) EstimatorOption {
	return func(e *Estimator) {
		e.modelPath = modelPath
		e.featuresPath = featuresPath
	}
}

// WithRevenueModel supplies an already loaded model and schema.
func WithRevenueModel(model regression.Regressor, schema *features.Schema) EstimatorOption {
	return func(e *Estimator) {
		e.model = model
		e.schema = schema
	}
}

// Estimator predicts movie revenue from form input.
type Estimator struct {
	mu sync.RWMutex

	model  regression.Regressor
	schema *features.Schema

	modelPath    string
	featuresPath string

	started bool
	logger  logger.Logger
}

// NewEstimator constructs an Estimator.
func NewEstimator(opts ...EstimatorOption) *Estimator {
	e := &Estimator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start loads the model and feature list, unless supplied, and checks that
// the model was trained on exactly the listed columns.
func (e *Estimator) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if e.logger == nil {
		e.logger = logger.Named("estimator")
	}

	if e.model == nil || e.schema == nil {
		if err := e.load(ctx); err != nil {
			metrics.RecordErrorByComponent("artifacts", "load")
			return err
		}
	}

	if !e.schema.Equal(e.model.Features()) {
		metrics.RecordErrorByComponent("artifacts", "schema_mismatch")
		return fmt.Errorf("%w: model has %d columns, feature list has %d",
			ErrSchemaMismatch, len(e.model.Features()), e.schema.Len())
	}

	e.started = true
	e.logger.Info(ctx, "estimator started",
		logger.String("kind", e.model.Kind()),
		logger.Int("features", e.schema.Len()),
		logger.Int("genres", len(e.schema.Genres())),
	)
	return nil
}

func (e *Estimator) load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		m, err := regression.Load(e.modelPath)
		if err != nil {
			return fmt.Errorf("load %s %q: %w", ArtifactRevenue, e.modelPath, err)
		}
		metrics.RecordArtifactLoad(ArtifactRevenue, msSince(start), len(m.Features()))
		e.logger.Info(ctx, "revenue model loaded",
			logger.String("path", e.modelPath),
			logger.String("kind", m.Kind()),
		)
		e.model = m
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		s, err := features.LoadSchema(e.featuresPath)
		if err != nil {
			return fmt.Errorf("load %s %q: %w", ArtifactFeatures, e.featuresPath, err)
		}
		metrics.RecordArtifactLoad(ArtifactFeatures, msSince(start), s.Len())
		e.schema = s
		return nil
	})
	return g.Wait()
}

// Ready reports whether Start completed.
func (e *Estimator) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started
}

// Schema returns the training-time feature schema, nil before Start.
func (e *Estimator) Schema() *features.Schema {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.started {
		return nil
	}
	return e.schema
}

// Estimate assembles a row from in and predicts its revenue. Input bounds
// are the caller's concern.
func (e *Estimator) Estimate(ctx context.Context, in features.Input) (Estimate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.started {
		metrics.RecordPrediction(PredictionError)
		return Estimate{}, ErrNotReady
	}

	start := time.Now()
	row := features.Assemble(e.schema, in)
	revenue, err := e.model.Predict(ctx, row)
	metrics.RecordPredictionLatency(msSince(start))
	if err != nil {
		metrics.RecordPrediction(PredictionError)
		metrics.RecordErrorByComponent("estimator", "predict")
		return Estimate{}, fmt.Errorf("predict revenue: %w", err)
	}
	metrics.RecordPrediction(PredictionOK)

	return Estimate{Revenue: revenue, Formatted: features.FormatUSD(revenue)}, nil
}

// GetStats returns estimator statistics for monitoring.
func (e *Estimator) GetStats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := map[string]interface{}{
		"started": e.started,
	}
	if e.started {
		stats["kind"] = e.model.Kind()
		stats["features"] = e.schema.Len()
		stats["genres"] = e.schema.Genres()
	}
	return stats
}
