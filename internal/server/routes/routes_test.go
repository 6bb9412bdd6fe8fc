package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/0ppliger/oam-broker/internal/server/middleware"
	"github.com/0ppliger/oam-broker/pkg/broker"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i any) error {
	return v.validator.Struct(i)
}

func newTestApp() *middleware.App {
	bus := broker.NewBus(8, 64)
	graph := broker.NewGraph(broker.GraphParams{Bus: bus})
	return &middleware.App{Graph: graph, Bus: bus}
}

// invoke runs a handler the way the router would: JSON body, bound
// path params, and the application context in place.
func invoke(t *testing.T, app *middleware.App, handler echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range params {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}

	if err := handler(&middleware.AppContext{Context: c, App: app}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func createEntity(t *testing.T, app *middleware.App, name string) broker.Entity {
	t.Helper()
	rec := invoke(t, app, CreateEntityHandler, http.MethodPost, "/emit/entity",
		`{"type":"FQDN","asset":{"name":"`+name+`"}}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create entity: status %d body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[broker.Entity](t, rec)
}

func TestCreateEntityHandler(t *testing.T) {
	app := newTestApp()

	first := createEntity(t, app, "example.org")
	if first.ID == "" || first.Type != "FQDN" {
		t.Fatalf("unexpected response: %+v", first)
	}

	second := createEntity(t, app, "example.org")
	if second.ID != first.ID {
		t.Fatalf("same value resolved to different ids: %s vs %s", first.ID, second.ID)
	}
	if !second.LastSeen.After(first.LastSeen.Time) {
		t.Fatal("repeat emit should advance last_seen")
	}
}

func TestCreateEntityHandlerRejects(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type":`},
		{"missing type", `{"asset":{"name":"x"}}`},
		{"missing asset", `{"type":"FQDN"}`},
		{"unknown kind", `{"type":"Starship","asset":{"name":"x"}}`},
		{"undeclared field", `{"type":"FQDN","asset":{"name":"x","color":"red"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := invoke(t, app, CreateEntityHandler, http.MethodPost, "/emit/entity", tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateEntityHandler(t *testing.T) {
	app := newTestApp()
	e := createEntity(t, app, "example.org")

	rec := invoke(t, app, UpdateEntityHandler, http.MethodPut, "/emit/entity/"+e.ID,
		`{"type":"FQDN","asset":{"name":"www.example.org"}}`, map[string]string{"id": e.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[broker.Entity](t, rec)
	if updated.ID != e.ID || updated.Asset["name"] != "www.example.org" {
		t.Fatalf("unexpected response: %+v", updated)
	}

	rec = invoke(t, app, UpdateEntityHandler, http.MethodPut, "/emit/entity/missing",
		`{"type":"FQDN","asset":{"name":"x"}}`, map[string]string{"id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status %d, want 404", rec.Code)
	}
}

func TestDeleteEntityHandlerCascades(t *testing.T) {
	app := newTestApp()
	from := createEntity(t, app, "example.org")
	to := createEntity(t, app, "www.example.org")

	rec := invoke(t, app, CreateEdgeHandler, http.MethodPost, "/emit/edge",
		`{"type":"simple_relation","relation":{},"from":"`+from.ID+`","to":"`+to.ID+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create edge: status %d body %s", rec.Code, rec.Body.String())
	}
	edge := decodeBody[broker.Edge](t, rec)

	rec = invoke(t, app, DeleteEntityHandler, http.MethodDelete, "/emit/entity/"+from.ID,
		"", map[string]string{"id": from.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d body %s", rec.Code, rec.Body.String())
	}

	got, err := app.Graph.GetEdge(edge.ID)
	if err != nil || !got.Tombstone {
		t.Fatalf("edge should be tombstoned with its endpoint, got %+v err %v", got, err)
	}

	rec = invoke(t, app, DeleteEntityHandler, http.MethodDelete, "/emit/entity/missing",
		"", map[string]string{"id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status %d, want 404", rec.Code)
	}
}

func TestCreateEdgeHandlerDanglingReference(t *testing.T) {
	app := newTestApp()
	e := createEntity(t, app, "example.org")

	rec := invoke(t, app, CreateEdgeHandler, http.MethodPost, "/emit/edge",
		`{"type":"simple_relation","relation":{},"from":"`+e.ID+`","to":"missing"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateEntityTagHandler(t *testing.T) {
	app := newTestApp()
	e := createEntity(t, app, "example.org")

	rec := invoke(t, app, CreateEntityTagHandler, http.MethodPost, "/emit/entity_tag",
		`{"type":"source_property","property":{"name":"dns"},"entity":"`+e.ID+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	tag := decodeBody[broker.EntityTag](t, rec)
	if tag.Entity != e.ID || tag.Type != "source_property" {
		t.Fatalf("unexpected response: %+v", tag)
	}

	rec = invoke(t, app, CreateEntityTagHandler, http.MethodPost, "/emit/entity_tag",
		`{"type":"source_property","property":{"name":"dns"},"entity":"missing"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("missing owner: status %d, want 409", rec.Code)
	}
}

func TestListenHandlerReplays(t *testing.T) {
	app := newTestApp()
	e := createEntity(t, app, "example.org")

	// A pre-cancelled request still drains the replay batch before the
	// stream shuts down, which keeps the test deterministic.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ec := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/listen?from_seq=1", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	c := ec.NewContext(req, rec)

	if err := ListenHandler(&middleware.AppContext{Context: c, App: app}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "text/event-stream" {
		t.Fatalf("content type %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: entity_created\n") || !strings.Contains(body, "id: 1\n") {
		t.Fatalf("missing replayed event: %q", body)
	}
	if !strings.Contains(body, e.ID) {
		t.Fatalf("payload should carry the entity snapshot: %q", body)
	}
	if got := app.Bus.SubscriberCount(); got != 0 {
		t.Fatalf("subscription should be deregistered, count %d", got)
	}
}

func TestListenHandlerRejectsBadFromSeq(t *testing.T) {
	app := newTestApp()
	ec := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/listen?from_seq=abc", nil)
	rec := httptest.NewRecorder()
	c := ec.NewContext(req, rec)

	if err := ListenHandler(&middleware.AppContext{Context: c, App: app}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}
