package pgx

import (
	"testing"

	"github.com/0ppliger/oam-broker/pkg/broker"
)

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name    string
		action  broker.ActionKind
		payload string
		check   func(t *testing.T, rec broker.ChangeRecord)
	}{
		{
			name:    "entity",
			action:  broker.EntityCreated,
			payload: `{"id":"e1","created_at":"2024-05-01T12:00:00.001000000Z","last_seen":"2024-05-01T12:00:00.001000000Z","type":"FQDN","asset":{"name":"example.org"}}`,
			check: func(t *testing.T, rec broker.ChangeRecord) {
				if rec.Entity == nil {
					t.Fatal("entity payload not decoded")
				}
				if rec.Entity.ID != "e1" || rec.Entity.Type != "FQDN" || rec.Entity.Asset["name"] != "example.org" {
					t.Fatalf("unexpected entity: %+v", rec.Entity)
				}
				if rec.Entity.CreatedAt.IsZero() {
					t.Fatal("timestamp not decoded")
				}
			},
		},
		{
			name:    "edge",
			action:  broker.EdgeDeleted,
			payload: `{"id":"g1","created_at":"2024-05-01T12:00:00.002000000Z","last_seen":"2024-05-01T12:00:00.002000000Z","type":"basic_dns_relation","relation":{"header":{"rr_type":1}},"from_entity":"e1","to_entity":"e2"}`,
			check: func(t *testing.T, rec broker.ChangeRecord) {
				if rec.Edge == nil {
					t.Fatal("edge payload not decoded")
				}
				if rec.Edge.FromEntity != "e1" || rec.Edge.ToEntity != "e2" {
					t.Fatalf("unexpected edge: %+v", rec.Edge)
				}
			},
		},
		{
			name:    "entity tag",
			action:  broker.EntityTagTouched,
			payload: `{"id":"t1","created_at":"2024-05-01T12:00:00.003000000Z","last_seen":"2024-05-01T12:00:00.004000000Z","type":"source_property","property":{"name":"dns"},"entity":"e1"}`,
			check: func(t *testing.T, rec broker.ChangeRecord) {
				if rec.EntityTag == nil {
					t.Fatal("entity tag payload not decoded")
				}
				if rec.EntityTag.Entity != "e1" || rec.EntityTag.Property["name"] != "dns" {
					t.Fatalf("unexpected entity tag: %+v", rec.EntityTag)
				}
			},
		},
		{
			name:    "edge tag",
			action:  broker.EdgeTagUpdated,
			payload: `{"id":"t2","created_at":"2024-05-01T12:00:00.005000000Z","last_seen":"2024-05-01T12:00:00.006000000Z","type":"source_property","property":{"name":"cert"},"edge":"g1"}`,
			check: func(t *testing.T, rec broker.ChangeRecord) {
				if rec.EdgeTag == nil {
					t.Fatal("edge tag payload not decoded")
				}
				if rec.EdgeTag.Edge != "g1" {
					t.Fatalf("unexpected edge tag: %+v", rec.EdgeTag)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := decodeRecord(7, tc.action, []byte(tc.payload))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if rec.Seq != 7 || rec.Action != tc.action {
				t.Fatalf("seq/action lost: %+v", rec)
			}
			if rec.SubjectID() == "" {
				t.Fatal("decoded record has no subject")
			}
			tc.check(t, rec)
		})
	}
}

func TestDecodeRecordRejects(t *testing.T) {
	if _, err := decodeRecord(1, broker.ActionKind("bogus"), []byte(`{}`)); err == nil {
		t.Fatal("unknown action should fail")
	}
	if _, err := decodeRecord(1, broker.EntityCreated, []byte(`{"id":`)); err == nil {
		t.Fatal("malformed payload should fail")
	}
}
