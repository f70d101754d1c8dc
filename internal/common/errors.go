// Package common contains shared constants and sentinel errors used across
// agent components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Backend errors. ErrorUnauthorized marks a definitive 401 from the
	// backend; every other transport or server failure is wrapped as a
	// plain error and treated as transient/retryable.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorBadResponse  = errors.New("unexpected response body")

	// Bus errors. ErrorBusUnavailable means the agent runtime is gone
	// (shut down or restarting); senders are expected to no-op.
	ErrorBusUnavailable = errors.New("agent bus unavailable")
)
