package oam

import (
	"testing"
)

func TestRegistryValidate(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name    string
		class   Class
		value   TypedValue
		wantErr bool
	}{
		{
			name:  "ValidFQDN",
			class: ClassAsset,
			value: TypedValue{Kind: "FQDN", Fields: Fields{"name": "example.org"}},
		},
		{
			name:  "ValidWithOptional",
			class: ClassAsset,
			value: TypedValue{Kind: "AutonomousSystem", Fields: Fields{"number": float64(64512), "handle": "AS64512"}},
		},
		{
			name:    "UnknownKind",
			class:   ClassAsset,
			value:   TypedValue{Kind: "Spaceship", Fields: Fields{"name": "x"}},
			wantErr: true,
		},
		{
			name:    "MissingRequired",
			class:   ClassAsset,
			value:   TypedValue{Kind: "IPAddress", Fields: Fields{"address": "10.0.0.1"}},
			wantErr: true,
		},
		{
			name:    "UndeclaredField",
			class:   ClassAsset,
			value:   TypedValue{Kind: "FQDN", Fields: Fields{"name": "example.org", "color": "blue"}},
			wantErr: true,
		},
		{
			name:    "WrongClass",
			class:   ClassRelation,
			value:   TypedValue{Kind: "FQDN", Fields: Fields{"name": "example.org"}},
			wantErr: true,
		},
		{
			name:  "RelationNoRequiredFields",
			class: ClassRelation,
			value: TypedValue{Kind: "simple_relation", Fields: Fields{}},
		},
		{
			name:  "ValidProperty",
			class: ClassProperty,
			value: TypedValue{Kind: "dns_record_property", Fields: Fields{"property_name": "a_record", "data": "10.0.0.1"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := reg.Validate(tc.class, tc.value)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate(%v, %v) error = %v, wantErr %v", tc.class, tc.value, err, tc.wantErr)
			}
		})
	}
}

func TestRegistryRegisterExtends(t *testing.T) {
	reg := DefaultRegistry()
	cert := TypedValue{Kind: "TLSCertificate", Fields: Fields{"serial_number": "04:2a"}}
	if err := reg.Validate(ClassAsset, cert); err == nil {
		t.Fatal("TLSCertificate should not validate before Register")
	}

	reg.Register(ClassAsset, "TLSCertificate", Schema{Required: []string{"serial_number"}})
	if err := reg.Validate(ClassAsset, cert); err != nil {
		t.Fatalf("Validate registered kind: %v", err)
	}
}

func TestIdentityKey(t *testing.T) {
	fqdn := TypedValue{Kind: "FQDN", Fields: Fields{"name": "example.org"}}

	k1, err := IdentityKey(ClassAsset, fqdn)
	if err != nil {
		t.Fatalf("IdentityKey: %v", err)
	}
	k2, err := IdentityKey(ClassAsset, TypedValue{Kind: "FQDN", Fields: Fields{"name": "example.org"}})
	if err != nil {
		t.Fatalf("IdentityKey: %v", err)
	}
	if k1 != k2 {
		t.Fatalf("identical values produced different keys: %s vs %s", k1, k2)
	}

	k3, _ := IdentityKey(ClassAsset, TypedValue{Kind: "FQDN", Fields: Fields{"name": "example.com"}})
	if k1 == k3 {
		t.Fatal("different values produced the same key")
	}

	// Same content under different scopes must not collide.
	prop := TypedValue{Kind: "source_property", Fields: Fields{"name": "crawler"}}
	owner1, _ := IdentityKey(ClassProperty, prop, "id-1")
	owner2, _ := IdentityKey(ClassProperty, prop, "id-2")
	if owner1 == owner2 {
		t.Fatal("same property under different owners produced the same key")
	}

	// Edge scope is ordered: a->b and b->a are distinct identities.
	rel := TypedValue{Kind: "simple_relation", Fields: Fields{}}
	ab, _ := IdentityKey(ClassRelation, rel, "a", "b")
	ba, _ := IdentityKey(ClassRelation, rel, "b", "a")
	if ab == ba {
		t.Fatal("reversed edge endpoints produced the same key")
	}
}
