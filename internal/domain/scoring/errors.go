package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrArtifactMissing = errors.New("scoring artifact not found")
	ErrInvalidArtifact = errors.New("invalid scoring artifact")
)
