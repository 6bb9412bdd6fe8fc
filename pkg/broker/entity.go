package broker

import (
	"sort"

	"github.com/0ppliger/oam-broker/pkg/oam"
)

// CreateEntity resolves an asset value to an entity: a new record if
// the identity is unseen, a touch if identical content is re-seen.
func (g *Graph) CreateEntity(v oam.TypedValue) (*Entity, Outcome, error) {
	if err := g.validateValue(oam.ClassAsset, v); err != nil {
		return nil, "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key, err := g.identityKey(oam.ClassAsset, v)
	if err != nil {
		return nil, "", err
	}

	if id, ok := g.byKey[key]; ok {
		e := g.entities[id]
		e.LastSeen = g.timestamp(e.LastSeen)
		rec := entityRecord(OutcomeTouched, e)
		g.commit([]ChangeRecord{rec})
		return rec.Entity, OutcomeTouched, nil
	}

	id, err := g.allocateID(ObjectEntity)
	if err != nil {
		return nil, "", err
	}
	ts := g.timestamp(Timestamp{})
	e := &Entity{
		ID:        id,
		CreatedAt: ts,
		LastSeen:  ts,
		Type:      v.Kind,
		Asset:     v.Fields,
	}
	g.entities[id] = e
	g.claimKey(key, id)

	rec := entityRecord(OutcomeCreated, e)
	g.commit([]ChangeRecord{rec})
	return rec.Entity, OutcomeCreated, nil
}

// UpdateEntity replaces the value of an existing live entity. An
// identical value degrades to a touch. Unknown and tombstoned ids fail
// with ErrNotFound; a value whose identity already belongs to another
// live entity fails with ErrValidation.
func (g *Graph) UpdateEntity(id string, v oam.TypedValue) (*Entity, Outcome, error) {
	if err := g.validateValue(oam.ClassAsset, v); err != nil {
		return nil, "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.liveEntity(id)
	if !ok {
		return nil, "", ErrNotFound
	}

	if e.value().Equal(v) {
		e.LastSeen = g.timestamp(e.LastSeen)
		rec := entityRecord(OutcomeTouched, e)
		g.commit([]ChangeRecord{rec})
		return rec.Entity, OutcomeTouched, nil
	}

	key, err := g.identityKey(oam.ClassAsset, v)
	if err != nil {
		return nil, "", err
	}
	if err := g.rebindKey(id, key); err != nil {
		return nil, "", err
	}

	e.Type = v.Kind
	e.Asset = v.Fields
	e.LastSeen = g.timestamp(e.LastSeen)

	rec := entityRecord(OutcomeUpdated, e)
	g.commit([]ChangeRecord{rec})
	return rec.Entity, OutcomeUpdated, nil
}

// DeleteEntity tombstones an entity and cascades to every edge and tag
// that depends on it, as one atomic batch: a reader or subscriber sees
// all of the tombstones or none. Deleting an already-tombstoned entity
// is idempotent and returns the prior tombstone without a new commit.
func (g *Graph) DeleteEntity(id string) (*Entity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.Tombstone {
		out := *e
		return &out, nil
	}

	e.Tombstone = true
	g.releaseKey(id)
	recs := []ChangeRecord{entityRecord(OutcomeDeleted, e)}

	for _, tag := range g.entityTagsOf(id) {
		tag.Tombstone = true
		g.releaseKey(tag.ID)
		recs = append(recs, entityTagRecord(OutcomeDeleted, tag))
	}

	for _, edge := range g.edgesTouching(id) {
		recs = append(recs, g.tombstoneEdge(edge)...)
	}

	g.commit(recs)
	return recs[0].Entity, nil
}

// entityTagsOf lists live tags owned by an entity in a deterministic
// order.
func (g *Graph) entityTagsOf(entityID string) []*EntityTag {
	var tags []*EntityTag
	for _, tag := range g.entityTags {
		if tag.Entity == entityID && !tag.Tombstone {
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags
}

// edgesTouching lists live edges with the entity on either end in a
// deterministic order.
func (g *Graph) edgesTouching(entityID string) []*Edge {
	var edges []*Edge
	for _, edge := range g.edges {
		if !edge.Tombstone && (edge.FromEntity == entityID || edge.ToEntity == entityID) {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}
