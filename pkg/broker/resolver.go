package broker

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/0ppliger/oam-broker/pkg/oam"
)

// Identity resolution: every incoming value is reduced to a structural
// key over (kind, canonical fields, scope). The byKey index then
// decides between create, touch, and update. All helpers here run with
// the graph write lock held.

// validateValue checks a candidate against the catalog before any
// state is touched.
func (g *Graph) validateValue(class oam.Class, v oam.TypedValue) error {
	if v.Kind == "" {
		return fmt.Errorf("%w: missing %s type", ErrValidation, class)
	}
	if v.Fields == nil {
		return fmt.Errorf("%w: missing %s value", ErrValidation, class)
	}
	if err := g.registry.Validate(class, v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// identityKey computes the structural key for a value within a scope.
func (g *Graph) identityKey(class oam.Class, v oam.TypedValue, scope ...string) (string, error) {
	key, err := oam.IdentityKey(class, v, scope...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return key, nil
}

// liveEntity returns the entity for id only if it exists and is not
// tombstoned. Used for scope checks on edges and tags.
func (g *Graph) liveEntity(id string) (*Entity, bool) {
	e, ok := g.entities[id]
	if !ok || e.Tombstone {
		return nil, false
	}
	return e, true
}

// liveEdge returns the edge for id only if it exists and is not
// tombstoned.
func (g *Graph) liveEdge(id string) (*Edge, bool) {
	e, ok := g.edges[id]
	if !ok || e.Tombstone {
		return nil, false
	}
	return e, true
}

// allocateID assigns a fresh object id: random, collision-checked
// against every id ever issued, and reserved immediately so a
// tombstoned id can never come back.
func (g *Graph) allocateID(kind ObjectKind) (string, error) {
	for {
		id, err := gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("allocate id: %w", err)
		}
		if _, taken := g.ids[id]; taken {
			continue
		}
		g.ids[id] = kind
		return id, nil
	}
}

// claimKey binds a live id to its identity key.
func (g *Graph) claimKey(key, id string) {
	g.byKey[key] = id
	g.keyOf[id] = key
}

// releaseKey drops the identity binding of an id, if any. Called when
// a record is tombstoned or its value replaced.
func (g *Graph) releaseKey(id string) {
	if key, ok := g.keyOf[id]; ok {
		delete(g.byKey, key)
		delete(g.keyOf, id)
	}
}

// rebindKey moves an id to a new identity key after an update. It
// fails with ErrValidation if the key already belongs to another live
// record: two live records may never share an identity.
func (g *Graph) rebindKey(id, newKey string) error {
	if other, ok := g.byKey[newKey]; ok && other != id {
		return fmt.Errorf("%w: identity already held by %s", ErrValidation, other)
	}
	g.releaseKey(id)
	g.claimKey(newKey, id)
	return nil
}
