package scoring

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/goccy/go-json"
)

// factorEntry is the serialized form of one user or item.
type factorEntry struct {
	Bias    float64   `json:"bias"`
	Factors []float64 `json:"factors"`
	Rated   []int64   `json:"rated,omitempty"`
}

// svdArtifact is the serialized model.
type svdArtifact struct {
	Algorithm   string                 `json:"algorithm"`
	Version     string                 `json:"version"`
	GlobalMean  float64                `json:"global_mean"`
	RatingScale [2]float64             `json:"rating_scale"`
	Users       map[string]factorEntry `json:"users"`
	Items       map[string]factorEntry `json:"items"`
}

type latent struct {
	bias    float64
	factors []float64
}

// MatrixFactorization is a biased SVD model:
//
//	est = mu + b_u + b_i + q_i·p_u
//
// Terms for an unknown user or item are dropped and the estimate is clipped
// to the rating scale. The model is immutable and safe for concurrent use.
type MatrixFactorization struct {
	version string
	mu      float64
	lo, hi  float64
	k       int
	users   map[int64]latent
	items   map[int64]latent
	rated   map[int64][]int64
}

// LoadMatrixFactorization reads a model artifact from path.
func LoadMatrixFactorization(path string) (*MatrixFactorization, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactMissing, err)
	}
	defer f.Close()
	return DecodeMatrixFactorization(f)
}

// DecodeMatrixFactorization reads a model artifact from r.
func DecodeMatrixFactorization(r io.Reader) (*MatrixFactorization, error) {
	var a svdArtifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if a.Algorithm != "" && a.Algorithm != "svd" {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidArtifact, a.Algorithm)
	}
	if len(a.Users) == 0 {
		return nil, fmt.Errorf("%w: no users", ErrInvalidArtifact)
	}
	lo, hi := a.RatingScale[0], a.RatingScale[1]
	if lo == 0 && hi == 0 {
		lo, hi = 1, 5
	}
	if lo > hi {
		return nil, fmt.Errorf("%w: rating scale [%g, %g]", ErrInvalidArtifact, lo, hi)
	}

	m := &MatrixFactorization{
		version: a.Version,
		mu:      a.GlobalMean,
		lo:      lo,
		hi:      hi,
		k:       -1,
		users:   make(map[int64]latent, len(a.Users)),
		items:   make(map[int64]latent, len(a.Items)),
		rated:   make(map[int64][]int64),
	}
	if err := m.fill(m.users, a.Users, "user"); err != nil {
		return nil, err
	}
	if err := m.fill(m.items, a.Items, "item"); err != nil {
		return nil, err
	}
	for raw, e := range a.Users {
		if len(e.Rated) == 0 {
			continue
		}
		id, _ := strconv.ParseInt(raw, 10, 64)
		m.rated[id] = slices.Clone(e.Rated)
	}
	if m.k < 0 {
		m.k = 0
	}
	return m, nil
}

// fill parses ids and checks that every factor vector has the same length.
// Keys that parse to the same id (e.g. "7" and "07") are rejected.
func (m *MatrixFactorization) fill(dst map[int64]latent, src map[string]factorEntry, kind string) error {
	for raw, e := range src {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s id %q is not an integer", ErrInvalidArtifact, kind, raw)
		}
		if _, dup := dst[id]; dup {
			return fmt.Errorf("%w: duplicate %s id %d (key %q)", ErrInvalidArtifact, kind, id, raw)
		}
		if m.k < 0 {
			m.k = len(e.Factors)
		}
		if len(e.Factors) != m.k {
			return fmt.Errorf("%w: %s %d has %d factors, expected %d", ErrInvalidArtifact, kind, id, len(e.Factors), m.k)
		}
		dst[id] = latent{bias: e.Bias, factors: e.Factors}
	}
	return nil
}

// Score implements Scorer.
func (m *MatrixFactorization) Score(ctx context.Context, user, item int64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	est := m.mu
	u, uok := m.users[user]
	i, iok := m.items[item]
	if uok {
		est += u.bias
	}
	if iok {
		est += i.bias
	}
	if uok && iok {
		for f := range u.factors {
			est += u.factors[f] * i.factors[f]
		}
	}
	return min(max(est, m.lo), m.hi), nil
}

// IsKnownUser implements Scorer.
func (m *MatrixFactorization) IsKnownUser(user int64) bool {
	_, ok := m.users[user]
	return ok
}

// IsKnownItem reports whether item has learned factors.
func (m *MatrixFactorization) IsKnownItem(item int64) bool {
	_, ok := m.items[item]
	return ok
}

// Interacted implements HistoryProvider.
func (m *MatrixFactorization) Interacted(user int64) []int64 {
	return m.rated[user]
}

// Users returns the number of users in the training population.
func (m *MatrixFactorization) Users() int { return len(m.users) }

// Items returns the number of items with learned factors.
func (m *MatrixFactorization) Items() int { return len(m.items) }

// Factors returns the latent dimension.
func (m *MatrixFactorization) Factors() int { return m.k }

// Version returns the artifact version string.
func (m *MatrixFactorization) Version() string { return m.version }
