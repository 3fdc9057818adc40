// Package regression implements the revenue model artifact: a Regressor
// decoded from JSON and evaluated against an assembled feature row.
package regression

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/goccy/go-json"

	"github.com/okian/inferd/internal/domain/features"
)

// Artifact kinds.
const (
	KindLinear = "linear"
	KindForest = "forest"
)

// Regressor turns a feature row into a scalar prediction.
type Regressor interface {
	// Predict scores one row. The row's columns must equal Features().
	Predict(ctx context.Context, row features.Row) (float64, error)

	// Features lists the columns the model was trained on.
	Features() []string

	// Kind names the model family.
	Kind() string
}

// artifact is the on-disk shape shared by every kind.
type artifact struct {
	Kind         string             `json:"kind"`
	Version      string             `json:"version"`
	Features     []string           `json:"features"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
	Trees        []tree             `json:"trees"`
}

// Load reads a model artifact from path.
func Load(path string) (Regressor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactMissing, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a model artifact from r.
func Decode(r io.Reader) (Regressor, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrInvalidArtifact)
	}
	if _, err := features.NewSchema(a.Features); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}

	switch a.Kind {
	case KindLinear:
		return newLinear(a)
	case KindForest:
		return newForest(a)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidArtifact, a.Kind)
	}
}

// base holds what every kind shares.
type base struct {
	features []string
	index    map[string]int
}

func newBase(cols []string) base {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	return base{features: slices.Clone(cols), index: idx}
}

func (b *base) Features() []string { return slices.Clone(b.features) }

// vector checks the row against the trained set and orders it.
func (b *base) vector(row features.Row) ([]float64, error) {
	if len(row) != len(b.features) {
		return nil, fmt.Errorf("%w: row has %d columns, model expects %d", features.ErrColumnMismatch, len(row), len(b.features))
	}
	for c := range row {
		if _, ok := b.index[c]; !ok {
			return nil, fmt.Errorf("%w: unexpected column %q", features.ErrColumnMismatch, c)
		}
	}
	return row.Vector(b.features)
}

// Linear is an ordinary least squares style model: intercept + Σ coef·x.
type Linear struct {
	base
	intercept float64
	coef      []float64
}

func newLinear(a artifact) (*Linear, error) {
	b := newBase(a.Features)
	coef := make([]float64, len(a.Features))
	for name, w := range a.Coefficients {
		i, ok := b.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: coefficient for unknown feature %q", ErrInvalidArtifact, name)
		}
		coef[i] = w
	}
	return &Linear{base: b, intercept: a.Intercept, coef: coef}, nil
}

// Kind implements Regressor.
func (m *Linear) Kind() string { return KindLinear }

// Predict implements Regressor.
func (m *Linear) Predict(_ context.Context, row features.Row) (float64, error) {
	x, err := m.vector(row)
	if err != nil {
		return 0, err
	}
	y := m.intercept
	for i, w := range m.coef {
		y += w * x[i]
	}
	return y, nil
}
