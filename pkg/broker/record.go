package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/0ppliger/oam-broker/pkg/oam"
)

// timeLayout is fixed-width UTC so serialized timestamps sort
// lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Timestamp wraps time.Time with a stable, sortable wire encoding.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(timeLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
	}
	t.Time = parsed.UTC()
	return nil
}

// Entity is a node of the graph. Its value is immutable content; its
// identity is (type, value). Tombstoned entities keep their id forever.
type Entity struct {
	ID        string     `json:"id"`
	CreatedAt Timestamp  `json:"created_at"`
	LastSeen  Timestamp  `json:"last_seen"`
	Type      string     `json:"type"`
	Asset     oam.Fields `json:"asset"`
	Tombstone bool       `json:"-"`
}

func (e *Entity) value() oam.TypedValue {
	return oam.TypedValue{Kind: e.Type, Fields: e.Asset}
}

// Edge is a directed relation between two live entities.
type Edge struct {
	ID         string     `json:"id"`
	CreatedAt  Timestamp  `json:"created_at"`
	LastSeen   Timestamp  `json:"last_seen"`
	Type       string     `json:"type"`
	Relation   oam.Fields `json:"relation"`
	FromEntity string     `json:"from_entity"`
	ToEntity   string     `json:"to_entity"`
	Tombstone  bool       `json:"-"`
}

func (e *Edge) value() oam.TypedValue {
	return oam.TypedValue{Kind: e.Type, Fields: e.Relation}
}

// EntityTag attaches a typed property to one entity.
type EntityTag struct {
	ID        string     `json:"id"`
	CreatedAt Timestamp  `json:"created_at"`
	LastSeen  Timestamp  `json:"last_seen"`
	Type      string     `json:"type"`
	Property  oam.Fields `json:"property"`
	Entity    string     `json:"entity"`
	Tombstone bool       `json:"-"`
}

func (t *EntityTag) value() oam.TypedValue {
	return oam.TypedValue{Kind: t.Type, Fields: t.Property}
}

// EdgeTag attaches a typed property to one edge.
type EdgeTag struct {
	ID        string     `json:"id"`
	CreatedAt Timestamp  `json:"created_at"`
	LastSeen  Timestamp  `json:"last_seen"`
	Type      string     `json:"type"`
	Property  oam.Fields `json:"property"`
	Edge      string     `json:"edge"`
	Tombstone bool       `json:"-"`
}

func (t *EdgeTag) value() oam.TypedValue {
	return oam.TypedValue{Kind: t.Type, Fields: t.Property}
}

// ChangeRecord is one committed mutation: a sequence number, the wire
// action, and a snapshot of exactly one affected object. The snapshot
// is taken at commit time, so later mutations never alter a record
// already handed to subscribers or sinks.
type ChangeRecord struct {
	Seq    uint64     `json:"seq"`
	Action ActionKind `json:"action"`

	Entity    *Entity    `json:"entity,omitempty"`
	Edge      *Edge      `json:"edge,omitempty"`
	EntityTag *EntityTag `json:"entity_tag,omitempty"`
	EdgeTag   *EdgeTag   `json:"edge_tag,omitempty"`
}

// Payload returns the single object snapshot the record carries.
func (r ChangeRecord) Payload() any {
	switch {
	case r.Entity != nil:
		return r.Entity
	case r.Edge != nil:
		return r.Edge
	case r.EntityTag != nil:
		return r.EntityTag
	case r.EdgeTag != nil:
		return r.EdgeTag
	}
	return nil
}

// SubjectID returns the id of the affected object.
func (r ChangeRecord) SubjectID() string {
	switch {
	case r.Entity != nil:
		return r.Entity.ID
	case r.Edge != nil:
		return r.Edge.ID
	case r.EntityTag != nil:
		return r.EntityTag.ID
	case r.EdgeTag != nil:
		return r.EdgeTag.ID
	}
	return ""
}

func entityRecord(outcome Outcome, e *Entity) ChangeRecord {
	snapshot := *e
	return ChangeRecord{Action: Action(ObjectEntity, outcome), Entity: &snapshot}
}

func edgeRecord(outcome Outcome, e *Edge) ChangeRecord {
	snapshot := *e
	return ChangeRecord{Action: Action(ObjectEdge, outcome), Edge: &snapshot}
}

func entityTagRecord(outcome Outcome, t *EntityTag) ChangeRecord {
	snapshot := *t
	return ChangeRecord{Action: Action(ObjectEntityTag, outcome), EntityTag: &snapshot}
}

func edgeTagRecord(outcome Outcome, t *EdgeTag) ChangeRecord {
	snapshot := *t
	return ChangeRecord{Action: Action(ObjectEdgeTag, outcome), EdgeTag: &snapshot}
}
