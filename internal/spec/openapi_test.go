package spec

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/endpointdsl/internal/dsl"
)

func TestToOpenAPI_MapsEndpoints(t *testing.T) {
	t.Parallel()
	sm, err := loadModel(t, sampleManifestYAML)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc, err := ToOpenAPI(context.Background(), sm)
	if err != nil {
		t.Fatalf("to openapi: %v", err)
	}
	if doc.Info.Title != "Users API" || doc.Info.Version != "1.2.0" {
		t.Fatalf("info mismatch: %+v", doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "https://api.example.com" {
		t.Fatalf("servers mismatch: %+v", doc.Servers)
	}

	users := doc.Paths["/users"]
	if users == nil || users.Get == nil || users.Post == nil {
		t.Fatalf("missing /users operations: %+v", users)
	}
	if p := users.Get.Parameters.GetByInAndName("query", "active"); p == nil || p.Required || p.Schema.Value.Type != "boolean" {
		t.Fatalf("unexpected query parameter: %+v", p)
	}
	if users.Post.RequestBody == nil || users.Post.RequestBody.Value.Content.Get("application/json").Schema.Ref != "#/components/schemas/CreateUser" {
		t.Fatalf("unexpected request body: %+v", users.Post.RequestBody)
	}

	byID := doc.Paths["/users/{id}"]
	if byID == nil || byID.Get == nil {
		t.Fatalf("missing /users/{id}")
	}
	if byID.Get.OperationID != "getUser" {
		t.Fatalf("operation id: %q", byID.Get.OperationID)
	}
	p := byID.Get.Parameters.GetByInAndName("path", "id")
	if p == nil || !p.Required || p.Schema.Value.Format != "int32" {
		t.Fatalf("unexpected path parameter: %+v", p)
	}
	resp := byID.Get.Responses.Get(200)
	if resp == nil || resp.Value.Content.Get("application/json").Schema.Ref != "#/components/schemas/User" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	for _, name := range []string{"CreateUser", "User", "UserList"} {
		if doc.Components.Schemas[name] == nil {
			t.Fatalf("missing component schema %s", name)
		}
	}
}

func TestToOpenAPI_Defaults(t *testing.T) {
	t.Parallel()
	ep, err := dsl.Parse("GET /ping")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m := &Manifest{Location: "x"}
	sm, err := BuildServiceModel(context.Background(), m, []ParsedEndpoint{{Entry: Entry{Line: 1}, Endpoint: ep}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc, err := ToOpenAPI(context.Background(), sm)
	if err != nil {
		t.Fatalf("to openapi: %v", err)
	}
	if doc.Info.Title != defaultTitle || doc.Info.Version != defaultVersion {
		t.Fatalf("defaults not applied: %+v", doc.Info)
	}
	if r := doc.Paths["/ping"].Get.Responses.Get(200); r == nil || len(r.Value.Content) != 0 {
		t.Fatalf("expected bare 200 response, got %+v", r)
	}
}

func TestToOpenAPI_DuplicatePathVariableFailsValidation(t *testing.T) {
	t.Parallel()
	ep, err := dsl.Parse("GET /a/{id:int}/b/{id:int}")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sm, err := BuildServiceModel(context.Background(), &Manifest{Location: "x"}, []ParsedEndpoint{{Endpoint: ep}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err = ToOpenAPI(context.Background(), sm)
	var se *SpecError
	if !errors.As(err, &se) || se.Code != ValidationError {
		t.Fatalf("expected ValidationError, got %v (%T)", err, err)
	}
}

func TestSchemaFor(t *testing.T) {
	t.Parallel()
	cases := map[dsl.VariableType][2]string{
		dsl.TypeString: {"string", ""},
		dsl.TypeShort:  {"integer", "int32"},
		dsl.TypeInt:    {"integer", "int32"},
		dsl.TypeLong:   {"integer", "int64"},
		dsl.TypeByte:   {"integer", "int32"},
		dsl.TypeFloat:  {"number", "float"},
		dsl.TypeDouble: {"number", "double"},
		dsl.TypeBool:   {"boolean", ""},
	}
	for typ, want := range cases {
		s := SchemaFor(typ)
		if s.Type != want[0] || s.Format != want[1] {
			t.Errorf("%s: got %s/%s, want %s/%s", typ, s.Type, s.Format, want[0], want[1])
		}
	}
}
