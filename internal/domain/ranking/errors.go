package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	// ErrUserNotFound marks a user outside the model's training population.
	ErrUserNotFound = errors.New("user not found")

	// ErrInconsistentArtifacts marks a scored item the catalog cannot name.
	ErrInconsistentArtifacts = errors.New("inconsistent artifacts")

	// ErrScoring wraps any failure raised while scoring candidates.
	ErrScoring = errors.New("scoring failed")
)
