package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// flushRecorder counts flushes so tests can assert that every event is
// pushed to the transport individually.
type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestSessionWireFormat(t *testing.T) {
	g := newTestGraph()
	e, _, err := g.CreateEntity(fqdn("example.org"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := g.DeleteEntity(e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Replay both records, then close the subscription so Run returns.
	sub := g.Bus().SubscribeFrom(1)
	sub.Close()

	var w flushRecorder
	if err := NewSession(sub).Run(context.Background(), &w); err != nil {
		t.Fatalf("run: %v", err)
	}

	events := strings.Split(strings.TrimSuffix(w.String(), "\n\n"), "\n\n")
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %q", len(events), w.String())
	}
	if w.flushes != 2 {
		t.Fatalf("expected one flush per event, got %d", w.flushes)
	}

	for i, wantAction := range []ActionKind{EntityCreated, EntityDeleted} {
		lines := strings.Split(events[i], "\n")
		if len(lines) != 3 {
			t.Fatalf("event %d: expected 3 fields, got %q", i, events[i])
		}
		if lines[0] != "event: "+string(wantAction) {
			t.Fatalf("event %d: name %q, want %q", i, lines[0], wantAction)
		}
		if lines[1] != fmt.Sprintf("id: %d", i+1) {
			t.Fatalf("event %d: id line %q", i, lines[1])
		}
		var payload Entity
		if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &payload); err != nil {
			t.Fatalf("event %d: data is not valid JSON: %v", i, err)
		}
		if payload.ID != e.ID {
			t.Fatalf("event %d: payload id %s, want %s", i, payload.ID, e.ID)
		}
	}
}

func TestSessionCancelIsCleanDisconnect(t *testing.T) {
	bus := NewBus(8, 16)
	sub := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var w flushRecorder
	if err := NewSession(sub).Run(ctx, &w); err != nil {
		t.Fatalf("cancellation should return nil, got %v", err)
	}
	if got := bus.SubscriberCount(); got != 0 {
		t.Fatalf("session must deregister on return, count %d", got)
	}
}

func TestSessionReportsSlowConsumer(t *testing.T) {
	bus := NewBus(1, 16)
	sub := bus.Subscribe()

	// The second record overflows the one-slot queue and tears the
	// subscription down before the session starts draining.
	bus.Commit([]ChangeRecord{entityRec("a"), entityRec("b")})

	var w flushRecorder
	err := NewSession(sub).Run(context.Background(), &w)
	if !errors.Is(err, ErrSlowConsumer) {
		t.Fatalf("expected ErrSlowConsumer, got %v", err)
	}
	// The record accepted before the overflow still went out.
	if !strings.Contains(w.String(), "id: 1\n") {
		t.Fatalf("queued event should be delivered before teardown: %q", w.String())
	}
}
