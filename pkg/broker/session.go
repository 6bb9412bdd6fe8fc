package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type flusher interface {
	Flush()
}

// Session turns one subscription into the wire-level event stream. It
// serializes records one at a time, in order, and confirms the flush
// of each event before dequeuing the next, so a transient transport
// stall short of the queue bound never drops an event.
type Session struct {
	sub *Subscription
}

func NewSession(sub *Subscription) *Session {
	return &Session{sub: sub}
}

// Run pushes events to w until the context is cancelled, the transport
// fails, or the bus tears the subscription down. The subscription is
// always deregistered on return; a reconnecting client gets a fresh
// session and resumes via from_seq if it tracked sequence numbers.
//
// Cancellation is a normal disconnect and returns nil. A queue
// overflow returns ErrSlowConsumer.
func (s *Session) Run(ctx context.Context, w io.Writer) error {
	defer s.sub.Close()

	for {
		rec, err := s.sub.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if err := writeEvent(w, rec); err != nil {
			return err
		}
		if f, ok := w.(flusher); ok {
			f.Flush()
		}
	}
}

// writeEvent encodes one record as a server-sent event: the event name
// is the action, the id is the sequence number, and the data is the
// object snapshot in its response shape.
func writeEvent(w io.Writer, rec ChangeRecord) error {
	payload := rec.Payload()
	if payload == nil {
		return fmt.Errorf("change record %d has no payload", rec.Seq)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", rec.Action, rec.Seq, data)
	return err
}
