package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/inferd/internal/domain/catalog"
	"github.com/okian/inferd/internal/domain/ranking"
	"github.com/okian/inferd/internal/domain/scoring"
	"github.com/okian/inferd/pkg/logger"
	"github.com/okian/inferd/pkg/metrics"
)

// Artifact names used in logs and metrics.
const (
	ArtifactModel    = "svd_model"
	ArtifactCatalog  = "catalog"
	ArtifactRevenue  = "revenue_model"
	ArtifactFeatures = "features"
)

// Artifacts is the immutable recommender context built once at startup.
type Artifacts struct {
	Scorer  scoring.Scorer
	Catalog ranking.Catalog
}

// LoadArtifacts reads the SVD model and the catalog concurrently. Either
// failure fails the whole load.
func LoadArtifacts(ctx context.Context, log logger.Logger, modelPath, catalogPath string) (*Artifacts, error) {
	var (
		model *scoring.MatrixFactorization
		cat   *catalog.Catalog
	)

	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		m, err := scoring.LoadMatrixFactorization(modelPath)
		if err != nil {
			return fmt.Errorf("load %s %q: %w", ArtifactModel, modelPath, err)
		}
		metrics.RecordArtifactLoad(ArtifactModel, msSince(start), m.Users())
		log.Info(ctx, "model loaded",
			logger.String("path", modelPath),
			logger.String("version", m.Version()),
			logger.Int("users", m.Users()),
			logger.Int("items", m.Items()),
			logger.Int("factors", m.Factors()),
		)
		model = m
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		c, err := catalog.Load(catalogPath)
		if err != nil {
			return fmt.Errorf("load %s %q: %w", ArtifactCatalog, catalogPath, err)
		}
		metrics.RecordArtifactLoad(ArtifactCatalog, msSince(start), c.Len())
		for _, key := range c.NonCanonicalKeys() {
			log.Warn(ctx, "catalog key is not canonical and cannot be projected to a title",
				logger.String("key", key),
			)
		}
		log.Info(ctx, "catalog loaded",
			logger.String("path", catalogPath),
			logger.Int("titles", c.Len()),
		)
		cat = c
		return nil
	})
	if err := g.Wait(); err != nil {
		metrics.RecordErrorByComponent("artifacts", "load")
		return nil, err
	}

	return &Artifacts{Scorer: model, Catalog: cat}, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
