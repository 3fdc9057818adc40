package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrNotReady is returned when a request arrives before Start succeeded.
	ErrNotReady = errors.New("service not ready")

	// ErrSchemaMismatch marks a revenue model trained on different columns
	// than the feature list artifact.
	ErrSchemaMismatch = errors.New("model features do not match feature list")
)
