// Package scoring defines the collaborative filtering capability used by the
// ranker and the matrix factorization model that backs it.
package scoring

import (
	"context"
	"sync"
)

// Scorer estimates a user's preference for an item.
type Scorer interface {
	// Score returns the predicted preference of user for item, honoring ctx.
	Score(ctx context.Context, user, item int64) (float64, error)

	// IsKnownUser reports whether user belongs to the training population.
	IsKnownUser(user int64) bool
}

// HistoryProvider is implemented by scorers that know which items a user
// already interacted with.
type HistoryProvider interface {
	Interacted(user int64) []int64
}

// Option applies a configuration option to a Locked scorer.
type Option func(*Locked)

// WithExclusive makes Locked take a full mutex instead of a read lock, for
// backends whose predict path mutates shared state.
func WithExclusive() Option {
	return func(l *Locked) {
		l.exclusive = true
	}
}

// Locked serializes access to a Scorer that is not safe for concurrent use.
type Locked struct {
	mu        sync.RWMutex
	inner     Scorer
	exclusive bool
}

// NewLocked wraps s.
func NewLocked(s Scorer, opts ...Option) *Locked {
	l := &Locked{inner: s}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Score implements Scorer.
func (l *Locked) Score(ctx context.Context, user, item int64) (float64, error) {
	if l.exclusive {
		l.mu.Lock()
		defer l.mu.Unlock()
	} else {
		l.mu.RLock()
		defer l.mu.RUnlock()
	}
	return l.inner.Score(ctx, user, item)
}

// IsKnownUser implements Scorer.
func (l *Locked) IsKnownUser(user int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.inner.IsKnownUser(user)
}

// Interacted forwards to the wrapped scorer when it keeps history.
func (l *Locked) Interacted(user int64) []int64 {
	hp, ok := l.inner.(HistoryProvider)
	if !ok {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return hp.Interacted(user)
}
