package broker

import (
	"context"
	"sync"

	"github.com/0ppliger/oam-broker/pkg/logger"
)

// DefaultQueueSize bounds each subscriber's delivery queue.
const DefaultQueueSize = 256

// DefaultRetention bounds the replay window of the change log.
const DefaultRetention = 4096

// Bus owns the change log and fans committed records out to every
// registered subscriber in commit order. Publication never blocks on a
// slow subscriber: a full delivery queue tears that subscriber down
// with ErrSlowConsumer and leaves everyone else untouched.
type Bus struct {
	queueSize int

	mu        sync.Mutex
	log       *changeLog
	nextSubID int64
	subs      map[int64]*Subscription
}

func NewBus(queueSize, retention int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Bus{
		queueSize: queueSize,
		log:       newChangeLog(retention),
		subs:      make(map[int64]*Subscription),
	}
}

// Commit appends a batch of records to the log, assigning consecutive
// sequence numbers, and delivers them to all subscribers. The whole
// batch is committed under one critical section: a subscriber that
// registers concurrently sees either none of the batch or all of it
// (replay plus live), never a prefix with a gap.
//
// Only the graph store calls Commit, after its own mutation succeeded.
func (b *Bus) Commit(recs []ChangeRecord) []ChangeRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range recs {
		b.log.append(&recs[i])
		for id, sub := range b.subs {
			select {
			case sub.ch <- recs[i]:
			default:
				sub.closeReason = ErrSlowConsumer
				close(sub.ch)
				delete(b.subs, id)
				logger.Warn("Subscriber queue overflow, closing session", "subscriber", id, "seq", recs[i].Seq)
			}
		}
	}
	return recs
}

// Restore appends a record that already carries its sequence number,
// as read back from a durable archive. Sequence numbers must arrive
// strictly increasing. Meant for startup replay; any subscriber
// registered this early sees restored records as live delivery.
func (b *Bus) Restore(rec ChangeRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.log.restore(rec)
}

// LastSeq returns the sequence number of the most recent commit.
func (b *Bus) LastSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.log.lastSeq()
}

// Subscribe registers a subscriber that receives every record
// committed after registration. No historical replay.
func (b *Bus) Subscribe() *Subscription {
	return b.subscribe(0, false)
}

// SubscribeFrom registers a subscriber that first replays retained
// records with Seq >= fromSeq, then continues with live delivery.
// Registration and the replay snapshot happen atomically with respect
// to commits, so the hand-off from replay to live has no gap and no
// duplicate.
func (b *Bus) SubscribeFrom(fromSeq uint64) *Subscription {
	return b.subscribe(fromSeq, true)
}

func (b *Bus) subscribe(fromSeq uint64, replay bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	sub := &Subscription{
		id:  b.nextSubID,
		bus: b,
		ch:  make(chan ChangeRecord, b.queueSize),
	}
	if replay {
		sub.replay = b.log.since(fromSeq)
	}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe deregisters a subscriber and discards its queue. Safe to
// call more than once and concurrently with commits; pending delivery
// to other subscribers is unaffected.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	close(sub.ch)
	delete(b.subs, sub.id)
}

// SubscriberCount reports the number of open subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Subscription is one subscriber's view of the bus: an optional replay
// batch followed by a bounded live queue.
type Subscription struct {
	id     int64
	bus    *Bus
	replay []ChangeRecord
	ch     chan ChangeRecord

	// closeReason is set under the bus lock before ch is closed, so a
	// receiver that observes the close also observes the reason.
	closeReason error
}

// Next returns the next record in order: replay first, then live
// delivery. It returns ErrSlowConsumer if the bus tore the
// subscription down on queue overflow, context.Canceled if the
// subscription was closed, and ctx.Err() on caller cancellation.
func (s *Subscription) Next(ctx context.Context) (ChangeRecord, error) {
	if len(s.replay) > 0 {
		rec := s.replay[0]
		s.replay = s.replay[1:]
		return rec, nil
	}
	select {
	case rec, ok := <-s.ch:
		if !ok {
			if s.closeReason != nil {
				return ChangeRecord{}, s.closeReason
			}
			return ChangeRecord{}, context.Canceled
		}
		return rec, nil
	case <-ctx.Done():
		return ChangeRecord{}, ctx.Err()
	}
}

// Close deregisters the subscription from the bus.
func (s *Subscription) Close() {
	s.bus.Unsubscribe(s)
}
