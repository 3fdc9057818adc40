// Package ranking turns a user id into an ordered top-N list of catalog
// titles: membership check, candidate pool, scoring, stable ranking,
// truncation and projection.
package ranking

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/okian/inferd/internal/domain/scoring"
)

// Default ranking configuration constants.
const (
	DefaultTopN      = 10
	defaultWorkers   = 1
	defaultChunkSize = 2048
)

// Catalog is the candidate pool and title projection.
type Catalog interface {
	// IDs returns every candidate in catalog order.
	IDs() []int64
	// Title projects an id to its display title.
	Title(id int64) (string, bool)
}

// Scored is one ranked candidate.
type Scored struct {
	Item  int64   `json:"item"`
	Score float64 `json:"score"`
}

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithTopN sets how many candidates survive truncation.
func WithTopN(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.topN = n
		}
	}
}

// WithWorkers bounds the number of goroutines scoring chunks concurrently.
func WithWorkers(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithChunkSize sets how many candidates one worker scores between
// cancellation checks.
func WithChunkSize(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// WithExcludeInteracted drops items the user already interacted with from
// the candidate pool, when the scorer knows the user's history.
func WithExcludeInteracted(on bool) Option {
	return func(r *Ranker) {
		r.excludeInteracted = on
	}
}

// WithScoredHook registers fn to receive the number of candidates scored
// by each successful Rank call.
func WithScoredHook(fn func(n int)) Option {
	return func(r *Ranker) {
		r.onScored = fn
	}
}

// Ranker is immutable after New and safe for concurrent use as long as its
// Scorer is.
type Ranker struct {
	scorer  scoring.Scorer
	catalog Catalog

	topN              int
	workers           int
	chunkSize         int
	excludeInteracted bool
	onScored          func(n int)
}

// New creates a Ranker over scorer and catalog.
func New(scorer scoring.Scorer, catalog Catalog, opts ...Option) *Ranker {
	r := &Ranker{
		scorer:    scorer,
		catalog:   catalog,
		topN:      DefaultTopN,
		workers:   defaultWorkers,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TopN returns the truncation size.
func (r *Ranker) TopN() int { return r.topN }

// Rank scores every candidate for user and returns the best TopN, highest
// score first. Equal scores keep catalog order. Unknown users fail with
// ErrUserNotFound before any scoring call.
func (r *Ranker) Rank(ctx context.Context, user int64) ([]Scored, error) {
	if !r.scorer.IsKnownUser(user) {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, user)
	}

	candidates := r.candidates(user)
	scored, err := r.score(ctx, user, candidates)
	if err != nil {
		return nil, err
	}
	if r.onScored != nil {
		r.onScored(len(scored))
	}

	slices.SortStableFunc(scored, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(scored) > r.topN {
		scored = scored[:r.topN]
	}
	return slices.Clip(scored), nil
}

// Recommend ranks candidates for user and projects them to titles.
// A ranked id without a title fails the whole request with
// ErrInconsistentArtifacts; no partial list is returned.
func (r *Ranker) Recommend(ctx context.Context, user int64) ([]string, error) {
	ranked, err := r.Rank(ctx, user)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(ranked))
	for i, s := range ranked {
		t, ok := r.catalog.Title(s.Item)
		if !ok {
			return nil, fmt.Errorf("%w: item %d has no title", ErrInconsistentArtifacts, s.Item)
		}
		titles[i] = t
	}
	return titles, nil
}

func (r *Ranker) candidates(user int64) []int64 {
	ids := r.catalog.IDs()
	if !r.excludeInteracted {
		return ids
	}
	hp, ok := r.scorer.(scoring.HistoryProvider)
	if !ok {
		return ids
	}
	seen := hp.Interacted(user)
	if len(seen) == 0 {
		return ids
	}
	skip := make(map[int64]struct{}, len(seen))
	for _, id := range seen {
		skip[id] = struct{}{}
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, drop := skip[id]; !drop {
			out = append(out, id)
		}
	}
	return out
}

// score fills one slot per candidate. Chunks are scored concurrently but
// each result lands at its candidate's index, so the output order never
// depends on scheduling.
func (r *Ranker) score(ctx context.Context, user int64, candidates []int64) ([]Scored, error) {
	out := make([]Scored, len(candidates))

	scoreRange := func(ctx context.Context, lo, hi int) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrScoring, err)
		}
		for i := lo; i < hi; i++ {
			s, err := r.scorer.Score(ctx, user, candidates[i])
			if err != nil {
				return fmt.Errorf("%w: item %d: %w", ErrScoring, candidates[i], err)
			}
			out[i] = Scored{Item: candidates[i], Score: s}
		}
		return nil
	}

	if r.workers == 1 || len(candidates) <= r.chunkSize {
		for lo := 0; lo < len(candidates); lo += r.chunkSize {
			if err := scoreRange(ctx, lo, min(lo+r.chunkSize, len(candidates))); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for lo := 0; lo < len(candidates); lo += r.chunkSize {
		hi := min(lo+r.chunkSize, len(candidates))
		g.Go(func() error {
			return scoreRange(gctx, lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
