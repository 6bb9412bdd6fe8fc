package broker

import (
	"fmt"
	"sort"

	"github.com/0ppliger/oam-broker/pkg/oam"
)

// CreateEdge resolves a relation between two live entities. Both
// endpoints must exist and be live; identical content between the same
// endpoints touches the existing edge.
func (g *Graph) CreateEdge(v oam.TypedValue, fromID, toID string) (*Edge, Outcome, error) {
	if err := g.validateValue(oam.ClassRelation, v); err != nil {
		return nil, "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.liveEntity(fromID); !ok {
		return nil, "", fmt.Errorf("%w: from entity %s", ErrDanglingReference, fromID)
	}
	if _, ok := g.liveEntity(toID); !ok {
		return nil, "", fmt.Errorf("%w: to entity %s", ErrDanglingReference, toID)
	}

	key, err := g.identityKey(oam.ClassRelation, v, fromID, toID)
	if err != nil {
		return nil, "", err
	}

	if id, ok := g.byKey[key]; ok {
		e := g.edges[id]
		e.LastSeen = g.timestamp(e.LastSeen)
		rec := edgeRecord(OutcomeTouched, e)
		g.commit([]ChangeRecord{rec})
		return rec.Edge, OutcomeTouched, nil
	}

	id, err := g.allocateID(ObjectEdge)
	if err != nil {
		return nil, "", err
	}
	ts := g.timestamp(Timestamp{})
	e := &Edge{
		ID:         id,
		CreatedAt:  ts,
		LastSeen:   ts,
		Type:       v.Kind,
		Relation:   v.Fields,
		FromEntity: fromID,
		ToEntity:   toID,
	}
	g.edges[id] = e
	g.claimKey(key, id)

	rec := edgeRecord(OutcomeCreated, e)
	g.commit([]ChangeRecord{rec})
	return rec.Edge, OutcomeCreated, nil
}

// UpdateEdge replaces the value of an existing live edge. Endpoints
// are part of the edge's identity and cannot be re-pointed: a request
// naming different endpoints is rejected.
func (g *Graph) UpdateEdge(id string, v oam.TypedValue, fromID, toID string) (*Edge, Outcome, error) {
	if err := g.validateValue(oam.ClassRelation, v); err != nil {
		return nil, "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.liveEdge(id)
	if !ok {
		return nil, "", ErrNotFound
	}
	if e.FromEntity != fromID || e.ToEntity != toID {
		return nil, "", fmt.Errorf("%w: edge endpoints are immutable", ErrValidation)
	}

	if e.value().Equal(v) {
		e.LastSeen = g.timestamp(e.LastSeen)
		rec := edgeRecord(OutcomeTouched, e)
		g.commit([]ChangeRecord{rec})
		return rec.Edge, OutcomeTouched, nil
	}

	key, err := g.identityKey(oam.ClassRelation, v, fromID, toID)
	if err != nil {
		return nil, "", err
	}
	if err := g.rebindKey(id, key); err != nil {
		return nil, "", err
	}

	e.Type = v.Kind
	e.Relation = v.Fields
	e.LastSeen = g.timestamp(e.LastSeen)

	rec := edgeRecord(OutcomeUpdated, e)
	g.commit([]ChangeRecord{rec})
	return rec.Edge, OutcomeUpdated, nil
}

// DeleteEdge tombstones an edge and its tags as one atomic batch.
// Idempotent on already-tombstoned edges.
func (g *Graph) DeleteEdge(id string) (*Edge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.edges[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.Tombstone {
		out := *e
		return &out, nil
	}

	recs := g.tombstoneEdge(e)
	g.commit(recs)
	return recs[0].Edge, nil
}

// tombstoneEdge tombstones one edge plus its live tags and returns the
// change records, edge first. Runs with the write lock held; the
// caller commits.
func (g *Graph) tombstoneEdge(e *Edge) []ChangeRecord {
	e.Tombstone = true
	g.releaseKey(e.ID)
	recs := []ChangeRecord{edgeRecord(OutcomeDeleted, e)}

	var tags []*EdgeTag
	for _, tag := range g.edgeTags {
		if tag.Edge == e.ID && !tag.Tombstone {
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	for _, tag := range tags {
		tag.Tombstone = true
		g.releaseKey(tag.ID)
		recs = append(recs, edgeTagRecord(OutcomeDeleted, tag))
	}
	return recs
}
