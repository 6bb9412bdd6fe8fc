package broker

import "errors"

// Sentinel errors for the mutation and delivery paths. Callers match
// them with errors.Is; the HTTP layer maps them to response codes.
var (
	// ErrValidation marks a malformed request: unknown catalog kind,
	// schema violation, or an identity conflict on explicit update.
	ErrValidation = errors.New("validation failed")

	// ErrDanglingReference marks an edge or tag that references an
	// unknown or tombstoned owner. Rejected before any state change.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrNotFound marks an update or delete aimed at an id that was
	// never assigned, or an update aimed at a tombstoned record.
	ErrNotFound = errors.New("not found")

	// ErrSlowConsumer is the teardown reason for a subscriber whose
	// delivery queue overflowed. It never affects other subscribers.
	ErrSlowConsumer = errors.New("slow consumer")
)
