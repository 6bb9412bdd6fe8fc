package broker

import (
	"sync"
	"time"

	"github.com/0ppliger/oam-broker/pkg/oam"
)

// Sink receives committed change records after the bus has delivered
// them. Sinks must not block: they run inside the commit critical
// section so that every sink observes records in sequence order.
type Sink interface {
	CommitBatch(recs []ChangeRecord)
}

// Graph is the authoritative store: the live-state index, the id
// space, and the commit path into the change log. All mutations of a
// graph serialize on one mutex; the assignment of sequence numbers
// follows lock order, so the log is totally ordered. Reads run
// concurrently with unrelated writes and always observe a consistent
// snapshot.
type Graph struct {
	registry *oam.Registry
	bus      *Bus
	sinks    []Sink
	now      func() time.Time

	mu         sync.RWMutex
	entities   map[string]*Entity
	edges      map[string]*Edge
	entityTags map[string]*EntityTag
	edgeTags   map[string]*EdgeTag

	// ids holds every id ever assigned, tombstoned or not, so an id is
	// never reused after deletion.
	ids   map[string]ObjectKind
	byKey map[string]string // identity key -> live id
	keyOf map[string]string // live id -> identity key
}

// GraphParams configures a Graph.
type GraphParams struct {
	Registry *oam.Registry
	Bus      *Bus
	Sinks    []Sink

	// Clock overrides time.Now, used by tests.
	Clock func() time.Time
}

func NewGraph(params GraphParams) *Graph {
	registry := params.Registry
	if registry == nil {
		registry = oam.DefaultRegistry()
	}
	bus := params.Bus
	if bus == nil {
		bus = NewBus(DefaultQueueSize, DefaultRetention)
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Graph{
		registry:   registry,
		bus:        bus,
		sinks:      params.Sinks,
		now:        clock,
		entities:   make(map[string]*Entity),
		edges:      make(map[string]*Edge),
		entityTags: make(map[string]*EntityTag),
		edgeTags:   make(map[string]*EdgeTag),
		ids:        make(map[string]ObjectKind),
		byKey:      make(map[string]string),
		keyOf:      make(map[string]string),
	}
}

// Bus returns the event bus fed by this graph.
func (g *Graph) Bus() *Bus {
	return g.bus
}

// commit hands a batch of records to the log and bus, then to the
// sinks, while the write lock is still held. Either the whole batch
// becomes visible or none of it does.
func (g *Graph) commit(recs []ChangeRecord) []ChangeRecord {
	recs = g.bus.Commit(recs)
	for _, sink := range g.sinks {
		sink.CommitBatch(recs)
	}
	return recs
}

// timestamp returns the current time, forced strictly after prev so a
// touch always advances last_seen even under a coarse clock.
func (g *Graph) timestamp(prev Timestamp) Timestamp {
	now := g.now().UTC()
	if !now.After(prev.Time) {
		now = prev.Add(time.Nanosecond)
	}
	return NewTimestamp(now)
}

// GetEntity returns a snapshot of the entity with the given id.
// Tombstoned entities are returned with Tombstone set; an id that was
// never assigned yields ErrNotFound.
func (g *Graph) GetEntity(id string) (*Entity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *e
	return &out, nil
}

// GetEdge returns a snapshot of the edge with the given id.
func (g *Graph) GetEdge(id string) (*Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *e
	return &out, nil
}

// GetEntityTag returns a snapshot of the entity tag with the given id.
func (g *Graph) GetEntityTag(id string) (*EntityTag, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.entityTags[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}

// GetEdgeTag returns a snapshot of the edge tag with the given id.
func (g *Graph) GetEdgeTag(id string) (*EdgeTag, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.edgeTags[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}
