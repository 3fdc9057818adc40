package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrArtifactMissing = errors.New("catalog artifact not found")
	ErrInvalidArtifact = errors.New("invalid catalog artifact")
)
