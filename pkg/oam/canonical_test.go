package oam

import (
	"testing"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	tests := []struct {
		name string
		in   Fields
		want string
	}{
		{
			name: "FlatObject",
			in:   Fields{"name": "example.org", "active": true},
			want: `{"active":true,"name":"example.org"}`,
		},
		{
			name: "NestedObject",
			in:   Fields{"header": map[string]any{"rr_type": float64(1), "class": float64(1)}},
			want: `{"header":{"class":1,"rr_type":1}}`,
		},
		{
			name: "Array",
			in:   Fields{"tags": []any{"b", "a"}},
			want: `{"tags":["b","a"]}`,
		},
		{
			name: "NullValue",
			in:   Fields{"banner": nil},
			want: `{"banner":null}`,
		},
		{
			name: "Empty",
			in:   Fields{},
			want: `{}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.in.Canonical()
			if err != nil {
				t.Fatalf("Canonical(%v) error: %v", tc.in, err)
			}
			if string(got) != tc.want {
				t.Fatalf("Canonical(%v) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestMarshalCanonicalRejectsUnsupported(t *testing.T) {
	_, err := Fields{"ch": make(chan int)}.Canonical()
	if err == nil {
		t.Fatal("expected error for unsupported value type")
	}
}

func TestFieldsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Fields
		want bool
	}{
		{
			name: "SameContentDifferentOrder",
			a:    Fields{"name": "example.org", "level": float64(2)},
			b:    Fields{"level": float64(2), "name": "example.org"},
			want: true,
		},
		{
			name: "DifferentValue",
			a:    Fields{"name": "example.org"},
			b:    Fields{"name": "example.com"},
			want: false,
		},
		{
			name: "ExtraField",
			a:    Fields{"name": "example.org"},
			b:    Fields{"name": "example.org", "level": float64(2)},
			want: false,
		},
		{
			name: "BothEmpty",
			a:    Fields{},
			b:    Fields{},
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Fatalf("Equal(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
