package store

import (
	"context"

	"github.com/0ppliger/oam-broker/pkg/broker"
)

// ChangeArchive is durable storage for committed change records. The
// in-memory change log stays authoritative for live subscribers; the
// archive preserves the full history past the replay window for
// offline consumers and restarts.
type ChangeArchive interface {
	// Append stores a batch of committed records. Appends are
	// idempotent per sequence number so a retried batch never
	// duplicates history.
	Append(ctx context.Context, recs []broker.ChangeRecord) error

	// Replay invokes fn for every archived record with Seq >= fromSeq,
	// in sequence order, until fn returns an error or records run out.
	Replay(ctx context.Context, fromSeq uint64, fn func(broker.ChangeRecord) error) error

	Close()
}
