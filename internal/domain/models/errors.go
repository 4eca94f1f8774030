package models

import "errors"

// Engine error taxonomy. Ingestion failures are transient and retried with
// backoff; malformed snapshots and out-of-order ticks are dropped and logged,
// never folded into a baseline. Configuration errors are fatal at startup.
var (
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	ErrOutOfOrder        = errors.New("out-of-order snapshot")
	ErrNotConnected      = errors.New("source not connected")
)
