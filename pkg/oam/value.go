package oam

import "bytes"

// Fields is the payload of a catalog value: the field set of an asset,
// relation, or property as it appears on the wire. Fields marshals in
// canonical form (recursively sorted keys) so that equal values always
// produce identical bytes.
type Fields map[string]any

// MarshalJSON renders the field set in canonical form.
func (f Fields) MarshalJSON() ([]byte, error) {
	return marshalCanonical(map[string]any(f))
}

// Canonical returns the canonical serialization of the field set.
func (f Fields) Canonical() ([]byte, error) {
	return marshalCanonical(map[string]any(f))
}

// Equal reports whether two field sets are structurally identical.
// Comparison is over the canonical serialization, so key order and
// numeric formatting differences do not matter.
func (f Fields) Equal(other Fields) bool {
	a, err := f.Canonical()
	if err != nil {
		return false
	}
	b, err := other.Canonical()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// TypedValue pairs a catalog kind with its field set. The broker core
// treats it as opaque content: it only validates, compares, and
// serializes it.
type TypedValue struct {
	Kind   string
	Fields Fields
}

// Equal reports whether two typed values have the same kind and
// structurally identical fields.
func (v TypedValue) Equal(other TypedValue) bool {
	return v.Kind == other.Kind && v.Fields.Equal(other.Fields)
}
