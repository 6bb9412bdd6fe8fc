package broker

import (
	"fmt"

	"github.com/0ppliger/oam-broker/pkg/oam"
)

// Restore replays one archived change record into the live state and
// the change log. Records must arrive in sequence order, before the
// graph serves mutations or subscribers; restored records are not
// re-committed to the sinks.
func (g *Graph) Restore(rec ChangeRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.apply(rec); err != nil {
		return fmt.Errorf("restore record %d: %w", rec.Seq, err)
	}
	if err := g.bus.Restore(rec); err != nil {
		return fmt.Errorf("restore record %d: %w", rec.Seq, err)
	}
	return nil
}

// apply writes a record's snapshot into the live-state index. A record
// is the full object state at commit time, so applying records in
// order converges on the state the commits left behind. The tombstone
// flag is not on the wire; it is recovered from the action.
func (g *Graph) apply(rec ChangeRecord) error {
	deleted := rec.Action.Outcome() == OutcomeDeleted
	switch {
	case rec.Entity != nil:
		e := *rec.Entity
		e.Tombstone = deleted
		g.ids[e.ID] = ObjectEntity
		g.entities[e.ID] = &e
		return g.restoreKey(deleted, e.ID, oam.ClassAsset, e.value())
	case rec.Edge != nil:
		e := *rec.Edge
		e.Tombstone = deleted
		g.ids[e.ID] = ObjectEdge
		g.edges[e.ID] = &e
		return g.restoreKey(deleted, e.ID, oam.ClassRelation, e.value(), e.FromEntity, e.ToEntity)
	case rec.EntityTag != nil:
		t := *rec.EntityTag
		t.Tombstone = deleted
		g.ids[t.ID] = ObjectEntityTag
		g.entityTags[t.ID] = &t
		return g.restoreKey(deleted, t.ID, oam.ClassProperty, t.value(), t.Entity)
	case rec.EdgeTag != nil:
		t := *rec.EdgeTag
		t.Tombstone = deleted
		g.ids[t.ID] = ObjectEdgeTag
		g.edgeTags[t.ID] = &t
		return g.restoreKey(deleted, t.ID, oam.ClassProperty, t.value(), t.Edge)
	}
	return fmt.Errorf("no payload")
}

// restoreKey rebinds the identity index to the restored snapshot: a
// live record owns the key of its current value, a tombstone owns
// none.
func (g *Graph) restoreKey(deleted bool, id string, class oam.Class, v oam.TypedValue, scope ...string) error {
	g.releaseKey(id)
	if deleted {
		return nil
	}
	key, err := oam.IdentityKey(class, v, scope...)
	if err != nil {
		return err
	}
	g.claimKey(key, id)
	return nil
}
