// Package pgx persists committed change records in PostgreSQL.
package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/0ppliger/oam-broker/pkg/broker"
	"github.com/0ppliger/oam-broker/pkg/leaselock"
)

// writerLockKey guards the archive table: one broker instance writes a
// given archive at a time.
const writerLockKey = "change_archive_writer"

// Archive stores change records in a single append-only table. The
// sequence number is the primary key, so replayed appends are no-ops.
type Archive struct {
	pool  *pgxpool.Pool
	lease *leaselock.Lease
}

// ArchiveParams configures New.
type ArchiveParams struct {
	DatabaseURL   string
	MigrationsDir string
}

// New connects to the database, applies pending migrations, takes the
// writer lease, and returns the archive. A second instance pointed at
// the same database fails with leaselock.ErrBusy instead of
// interleaving its records.
func New(ctx context.Context, params ArchiveParams) (*Archive, error) {
	if params.MigrationsDir != "" {
		m, err := migrate.New("file://"+params.MigrationsDir, params.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open migrations: %w", err)
		}
		defer m.Close()
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	pool, err := pgxpool.New(ctx, params.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	lease, err := leaselock.New(pool).Acquire(ctx, writerLockKey, leaselock.Options{})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("acquire writer lease: %w", err)
	}
	return &Archive{pool: pool, lease: lease}, nil
}

// Append stores a batch of records in one transaction. It refuses to
// write once the writer lease is lost.
func (a *Archive) Append(ctx context.Context, recs []broker.ChangeRecord) error {
	if len(recs) == 0 {
		return nil
	}
	if err := context.Cause(a.lease.Context); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("writer lease: %w", err)
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range recs {
		payload, err := json.Marshal(rec.Payload())
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", rec.Seq, err)
		}
		batch.Queue(
			`INSERT INTO change_records (seq, action, subject_id, payload)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (seq) DO NOTHING`,
			int64(rec.Seq), string(rec.Action), rec.SubjectID(), payload,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return tx.Commit(ctx)
}

// Replay streams archived records in sequence order.
func (a *Archive) Replay(ctx context.Context, fromSeq uint64, fn func(broker.ChangeRecord) error) error {
	rows, err := a.pool.Query(ctx,
		`SELECT seq, action, payload FROM change_records
		 WHERE seq >= $1 ORDER BY seq`,
		int64(fromSeq),
	)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq     int64
			action  string
			payload []byte
		)
		if err := rows.Scan(&seq, &action, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		rec, err := decodeRecord(uint64(seq), broker.ActionKind(action), payload)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (a *Archive) Close() {
	if a.lease != nil {
		a.lease.Release(context.Background())
	}
	a.pool.Close()
}

// decodeRecord rebuilds a ChangeRecord from its stored action and
// payload, choosing the snapshot shape by the action's object kind.
func decodeRecord(seq uint64, action broker.ActionKind, payload []byte) (broker.ChangeRecord, error) {
	rec := broker.ChangeRecord{Seq: seq, Action: action}

	var err error
	switch action.Object() {
	case broker.ObjectEntity:
		var e broker.Entity
		err = json.Unmarshal(payload, &e)
		rec.Entity = &e
	case broker.ObjectEdge:
		var e broker.Edge
		err = json.Unmarshal(payload, &e)
		rec.Edge = &e
	case broker.ObjectEntityTag:
		var t broker.EntityTag
		err = json.Unmarshal(payload, &t)
		rec.EntityTag = &t
	case broker.ObjectEdgeTag:
		var t broker.EdgeTag
		err = json.Unmarshal(payload, &t)
		rec.EdgeTag = &t
	default:
		return rec, fmt.Errorf("record %d: unknown action %q", seq, action)
	}
	if err != nil {
		return rec, fmt.Errorf("decode record %d: %w", seq, err)
	}
	return rec, nil
}
