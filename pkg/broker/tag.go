package broker

import (
	"fmt"

	"github.com/0ppliger/oam-broker/pkg/oam"
)

// CreateEntityTag resolves a property value scoped to one live entity.
func (g *Graph) CreateEntityTag(v oam.TypedValue, entityID string) (*EntityTag, Outcome, error) {
	if err := g.validateValue(oam.ClassProperty, v); err != nil {
		return nil, "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.liveEntity(entityID); !ok {
		return nil, "", fmt.Errorf("%w: entity %s", ErrDanglingReference, entityID)
	}

	key, err := g.identityKey(oam.ClassProperty, v, entityID)
	if err != nil {
		return nil, "", err
	}

	if id, ok := g.byKey[key]; ok {
		t := g.entityTags[id]
		t.LastSeen = g.timestamp(t.LastSeen)
		rec := entityTagRecord(OutcomeTouched, t)
		g.commit([]ChangeRecord{rec})
		return rec.EntityTag, OutcomeTouched, nil
	}

	id, err := g.allocateID(ObjectEntityTag)
	if err != nil {
		return nil, "", err
	}
	ts := g.timestamp(Timestamp{})
	t := &EntityTag{
		ID:        id,
		CreatedAt: ts,
		LastSeen:  ts,
		Type:      v.Kind,
		Property:  v.Fields,
		Entity:    entityID,
	}
	g.entityTags[id] = t
	g.claimKey(key, id)

	rec := entityTagRecord(OutcomeCreated, t)
	g.commit([]ChangeRecord{rec})
	return rec.EntityTag, OutcomeCreated, nil
}

// UpdateEntityTag replaces the value of an existing live entity tag.
// The owner is part of the tag's identity and must match.
func (g *Graph) UpdateEntityTag(id string, v oam.TypedValue, entityID string) (*EntityTag, Outcome, error) {
	if err := g.validateValue(oam.ClassProperty, v); err != nil {
		return nil, "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.entityTags[id]
	if !ok || t.Tombstone {
		return nil, "", ErrNotFound
	}
	if t.Entity != entityID {
		return nil, "", fmt.Errorf("%w: tag owner is immutable", ErrValidation)
	}

	if t.value().Equal(v) {
		t.LastSeen = g.timestamp(t.LastSeen)
		rec := entityTagRecord(OutcomeTouched, t)
		g.commit([]ChangeRecord{rec})
		return rec.EntityTag, OutcomeTouched, nil
	}

	key, err := g.identityKey(oam.ClassProperty, v, entityID)
	if err != nil {
		return nil, "", err
	}
	if err := g.rebindKey(id, key); err != nil {
		return nil, "", err
	}

	t.Type = v.Kind
	t.Property = v.Fields
	t.LastSeen = g.timestamp(t.LastSeen)

	rec := entityTagRecord(OutcomeUpdated, t)
	g.commit([]ChangeRecord{rec})
	return rec.EntityTag, OutcomeUpdated, nil
}

// DeleteEntityTag tombstones one entity tag. Idempotent.
func (g *Graph) DeleteEntityTag(id string) (*EntityTag, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.entityTags[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Tombstone {
		out := *t
		return &out, nil
	}

	t.Tombstone = true
	g.releaseKey(id)
	rec := entityTagRecord(OutcomeDeleted, t)
	g.commit([]ChangeRecord{rec})
	return rec.EntityTag, nil
}

// CreateEdgeTag resolves a property value scoped to one live edge.
func (g *Graph) CreateEdgeTag(v oam.TypedValue, edgeID string) (*EdgeTag, Outcome, error) {
	if err := g.validateValue(oam.ClassProperty, v); err != nil {
		return nil, "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.liveEdge(edgeID); !ok {
		return nil, "", fmt.Errorf("%w: edge %s", ErrDanglingReference, edgeID)
	}

	key, err := g.identityKey(oam.ClassProperty, v, edgeID)
	if err != nil {
		return nil, "", err
	}

	if id, ok := g.byKey[key]; ok {
		t := g.edgeTags[id]
		t.LastSeen = g.timestamp(t.LastSeen)
		rec := edgeTagRecord(OutcomeTouched, t)
		g.commit([]ChangeRecord{rec})
		return rec.EdgeTag, OutcomeTouched, nil
	}

	id, err := g.allocateID(ObjectEdgeTag)
	if err != nil {
		return nil, "", err
	}
	ts := g.timestamp(Timestamp{})
	t := &EdgeTag{
		ID:        id,
		CreatedAt: ts,
		LastSeen:  ts,
		Type:      v.Kind,
		Property:  v.Fields,
		Edge:      edgeID,
	}
	g.edgeTags[id] = t
	g.claimKey(key, id)

	rec := edgeTagRecord(OutcomeCreated, t)
	g.commit([]ChangeRecord{rec})
	return rec.EdgeTag, OutcomeCreated, nil
}

// UpdateEdgeTag replaces the value of an existing live edge tag.
func (g *Graph) UpdateEdgeTag(id string, v oam.TypedValue, edgeID string) (*EdgeTag, Outcome, error) {
	if err := g.validateValue(oam.ClassProperty, v); err != nil {
		return nil, "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.edgeTags[id]
	if !ok || t.Tombstone {
		return nil, "", ErrNotFound
	}
	if t.Edge != edgeID {
		return nil, "", fmt.Errorf("%w: tag owner is immutable", ErrValidation)
	}

	if t.value().Equal(v) {
		t.LastSeen = g.timestamp(t.LastSeen)
		rec := edgeTagRecord(OutcomeTouched, t)
		g.commit([]ChangeRecord{rec})
		return rec.EdgeTag, OutcomeTouched, nil
	}

	key, err := g.identityKey(oam.ClassProperty, v, edgeID)
	if err != nil {
		return nil, "", err
	}
	if err := g.rebindKey(id, key); err != nil {
		return nil, "", err
	}

	t.Type = v.Kind
	t.Property = v.Fields
	t.LastSeen = g.timestamp(t.LastSeen)

	rec := edgeTagRecord(OutcomeUpdated, t)
	g.commit([]ChangeRecord{rec})
	return rec.EdgeTag, OutcomeUpdated, nil
}

// DeleteEdgeTag tombstones one edge tag. Idempotent.
func (g *Graph) DeleteEdgeTag(id string) (*EdgeTag, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.edgeTags[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Tombstone {
		out := *t
		return &out, nil
	}

	t.Tombstone = true
	g.releaseKey(id)
	rec := edgeTagRecord(OutcomeDeleted, t)
	g.commit([]ChangeRecord{rec})
	return rec.EdgeTag, nil
}
