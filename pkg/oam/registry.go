package oam

import (
	"fmt"
	"sync"
)

// Class separates the three namespaces of the catalog. Asset kinds,
// relation kinds, and property kinds are registered and validated
// independently.
type Class int

const (
	ClassAsset Class = iota
	ClassRelation
	ClassProperty
)

func (c Class) String() string {
	switch c {
	case ClassAsset:
		return "asset"
	case ClassRelation:
		return "relation"
	case ClassProperty:
		return "property"
	}
	return "unknown"
}

// Schema describes the field set a kind accepts. Required fields must
// be present; fields outside Required and Optional are rejected.
type Schema struct {
	Required []string
	Optional []string
}

func (s Schema) allows(field string) bool {
	for _, f := range s.Required {
		if f == field {
			return true
		}
	}
	for _, f := range s.Optional {
		if f == field {
			return true
		}
	}
	return false
}

// Registry maps catalog kinds to their schemas. The broker core never
// inspects specific kinds; it only asks the registry to validate.
type Registry struct {
	mu    sync.RWMutex
	kinds map[Class]map[string]Schema
}

func NewRegistry() *Registry {
	return &Registry{
		kinds: map[Class]map[string]Schema{
			ClassAsset:    {},
			ClassRelation: {},
			ClassProperty: {},
		},
	}
}

// Register adds or replaces the schema for a kind.
func (r *Registry) Register(class Class, kind string, schema Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[class][kind] = schema
}

// Validate checks a typed value against the schema registered for its
// kind. It rejects unknown kinds, missing required fields, and fields
// the schema does not declare.
func (r *Registry) Validate(class Class, v TypedValue) error {
	r.mu.RLock()
	schema, ok := r.kinds[class][v.Kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown %s kind %q", class, v.Kind)
	}

	for _, field := range schema.Required {
		if _, present := v.Fields[field]; !present {
			return fmt.Errorf("%s %q: missing required field %q", class, v.Kind, field)
		}
	}
	for field := range v.Fields {
		if !schema.allows(field) {
			return fmt.Errorf("%s %q: unknown field %q", class, v.Kind, field)
		}
	}
	return nil
}

// DefaultRegistry returns a registry seeded with the core Open Asset
// Model kinds. Callers extend it with Register.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ClassAsset, "FQDN", Schema{Required: []string{"name"}})
	r.Register(ClassAsset, "IPAddress", Schema{Required: []string{"address", "type"}})
	r.Register(ClassAsset, "Netblock", Schema{Required: []string{"cidr", "type"}})
	r.Register(ClassAsset, "AutonomousSystem", Schema{Required: []string{"number"}, Optional: []string{"handle"}})
	r.Register(ClassAsset, "Service", Schema{Required: []string{"identifier"}, Optional: []string{"banner"}})
	r.Register(ClassAsset, "Organization", Schema{Required: []string{"name"}, Optional: []string{"legal_name"}})

	r.Register(ClassRelation, "basic_dns_relation", Schema{Required: []string{"header"}})
	r.Register(ClassRelation, "prefix_dns_relation", Schema{Required: []string{"header"}, Optional: []string{"prefix"}})
	r.Register(ClassRelation, "port_relation", Schema{Required: []string{"port_number", "protocol"}})
	r.Register(ClassRelation, "simple_relation", Schema{Optional: []string{"label"}})

	r.Register(ClassProperty, "dns_record_property", Schema{Required: []string{"property_name", "data"}, Optional: []string{"ttl"}})
	r.Register(ClassProperty, "source_property", Schema{Required: []string{"name"}, Optional: []string{"confidence"}})
	r.Register(ClassProperty, "vuln_property", Schema{Required: []string{"id"}, Optional: []string{"description", "category"}})
	r.Register(ClassProperty, "simple_property", Schema{Required: []string{"property_name", "property_value"}})

	return r
}
