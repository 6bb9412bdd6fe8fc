package oam

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Identity domains keep the three key spaces disjoint: an entity and a
// tag with coincidentally identical content can never collide. The
// version suffix leaves room for an algorithm change.
const (
	domainEntity = "oam/entity/v1"
	domainEdge   = "oam/edge/v1"
	domainTag    = "oam/tag/v1"
)

func keyDomain(class Class, scoped bool) string {
	switch class {
	case ClassRelation:
		return domainEdge
	case ClassProperty:
		return domainTag
	default:
		if scoped {
			return domainTag
		}
		return domainEntity
	}
}

// IdentityKey computes the structural identity of a typed value within
// its scope: empty scope for entities, (from, to) for edges, (owner)
// for tags. The key is a hex SHA-256 over the domain, kind, canonical
// field serialization, and scope elements, each separated by a null
// byte so no two input combinations share a byte stream.
func IdentityKey(class Class, v TypedValue, scope ...string) (string, error) {
	canonical, err := v.Fields.Canonical()
	if err != nil {
		return "", fmt.Errorf("identity key: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(keyDomain(class, len(scope) > 0)))
	h.Write([]byte{0x00})
	h.Write([]byte(v.Kind))
	h.Write([]byte{0x00})
	h.Write(canonical)
	for _, s := range scope {
		h.Write([]byte{0x00})
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
