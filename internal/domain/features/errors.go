package features

import "errors"

// Sentinel kinds for feature errors.
var (
	ErrArtifactMissing = errors.New("feature list not found")
	ErrInvalidSchema   = errors.New("invalid feature schema")
	ErrColumnMismatch  = errors.New("feature columns do not match schema")
)
