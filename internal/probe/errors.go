package probe

import "errors"

// Sentinel kinds for probe errors.
var (
	ErrNoUsers   = errors.New("no users to probe")
	ErrUnhealthy = errors.New("service unhealthy")
)
