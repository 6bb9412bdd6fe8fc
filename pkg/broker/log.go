package broker

import "fmt"

// changeLog is the append-only record of committed mutations. Appends
// assign the next sequence number; numbers are never skipped or
// reordered. A bounded window of records is retained for subscriber
// replay. The caller (the bus, under its commit lock) provides mutual
// exclusion.
type changeLog struct {
	retention int
	nextSeq   uint64
	records   []ChangeRecord
}

func newChangeLog(retention int) *changeLog {
	if retention <= 0 {
		retention = 1
	}
	return &changeLog{retention: retention}
}

// append assigns the next sequence number to the record, stores it,
// and returns the assigned number. Sequence numbers start at 1.
func (l *changeLog) append(rec *ChangeRecord) uint64 {
	l.nextSeq++
	rec.Seq = l.nextSeq
	l.records = append(l.records, *rec)
	if len(l.records) > l.retention {
		// Trim in chunks so appends stay amortized O(1).
		excess := len(l.records) - l.retention
		l.records = append(l.records[:0:0], l.records[excess:]...)
	}
	return rec.Seq
}

// restore accepts a record that already carries its sequence number,
// read back from an archive. Sequencing then continues after the
// highest restored number.
func (l *changeLog) restore(rec ChangeRecord) error {
	if rec.Seq == 0 || rec.Seq <= l.nextSeq {
		return fmt.Errorf("seq %d is not after %d", rec.Seq, l.nextSeq)
	}
	l.nextSeq = rec.Seq
	l.records = append(l.records, rec)
	if len(l.records) > l.retention {
		excess := len(l.records) - l.retention
		l.records = append(l.records[:0:0], l.records[excess:]...)
	}
	return nil
}

// since returns a copy of all retained records with Seq >= fromSeq.
// Records older than the retention window are gone; the caller gets
// the oldest retained record onward.
func (l *changeLog) since(fromSeq uint64) []ChangeRecord {
	start := len(l.records)
	for i, rec := range l.records {
		if rec.Seq >= fromSeq {
			start = i
			break
		}
	}
	out := make([]ChangeRecord, len(l.records)-start)
	copy(out, l.records[start:])
	return out
}

// lastSeq returns the most recently assigned sequence number, zero if
// nothing has been committed.
func (l *changeLog) lastSeq() uint64 {
	return l.nextSeq
}
