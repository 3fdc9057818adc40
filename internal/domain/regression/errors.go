package regression

import "errors"

// Sentinel kinds for regression model errors.
var (
	ErrArtifactMissing = errors.New("regression artifact not found")
	ErrInvalidArtifact = errors.New("invalid regression artifact")
)
