package store

import (
	"context"

	"github.com/0ppliger/oam-broker/internal/util"
	"github.com/0ppliger/oam-broker/pkg/broker"
	"github.com/0ppliger/oam-broker/pkg/logger"
)

const (
	sinkBuffer     = 1024
	appendAttempts = 3
)

// ArchiveSink adapts a ChangeArchive to the graph's commit hook.
// CommitBatch runs inside the commit critical section, so it only
// enqueues; a writer goroutine performs the actual appends in commit
// order. When the buffer is full the batch is dropped with a warning:
// durability of the archive is best-effort and must never stall or
// fail a mutation.
type ArchiveSink struct {
	archive ChangeArchive
	batches chan []broker.ChangeRecord
	done    chan struct{}
}

func NewArchiveSink(ctx context.Context, archive ChangeArchive) *ArchiveSink {
	s := &ArchiveSink{
		archive: archive,
		batches: make(chan []broker.ChangeRecord, sinkBuffer),
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// CommitBatch enqueues a batch without blocking.
func (s *ArchiveSink) CommitBatch(recs []broker.ChangeRecord) {
	select {
	case s.batches <- recs:
	default:
		logger.Warn("Archive sink buffer full, dropping batch", "records", len(recs))
	}
}

// Wait blocks until the writer goroutine has drained and exited.
func (s *ArchiveSink) Wait() {
	<-s.done
}

func (s *ArchiveSink) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case recs := <-s.batches:
			err := util.RetryErrWithContext(ctx, appendAttempts, func(ctx context.Context) error {
				return s.archive.Append(ctx, recs)
			})
			if err != nil {
				logger.Error("Failed to archive change batch", "records", len(recs), "err", err)
			}
		case <-ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case recs := <-s.batches:
					if err := s.archive.Append(context.Background(), recs); err != nil {
						logger.Error("Failed to archive change batch on shutdown", "records", len(recs), "err", err)
					}
				default:
					return
				}
			}
		}
	}
}
