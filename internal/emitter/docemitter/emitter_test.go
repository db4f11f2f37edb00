package docemitter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/endpointdsl/internal/dsl"
	genspec "github.com/mark3labs/endpointdsl/internal/spec"
)

func minimalModel(t *testing.T) (*openapi3.T, *genspec.ServiceModel) {
	t.Helper()
	ctx := context.Background()
	m, err := genspec.Decode([]byte("GET /users/{id:int}?full:bool -> User\nPOST /users CreateUser -> User\n"), "/tmp/api.txt")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, err := genspec.ParseEntries(ctx, m)
	if err != nil || !res.OK() {
		t.Fatalf("parse: %v %v", err, res)
	}
	sm, err := genspec.BuildServiceModel(ctx, m, res.Endpoints, genspec.WithTitle("Sample API"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc, err := genspec.ToOpenAPI(ctx, sm)
	if err != nil {
		t.Fatalf("openapi: %v", err)
	}
	return doc, sm
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	doc, sm := minimalModel(t)
	dir := filepath.Join(t.TempDir(), "out")

	res, err := Emit(context.Background(), doc, sm, Options{OutDir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(res.Planned) != 2 || res.Planned[0].RelPath != "endpoints.json" || res.Planned[1].RelPath != "openapi.yaml" {
		t.Fatalf("unexpected plan: %+v", res.Planned)
	}
	if _, err := os.Stat(dir); err == nil {
		t.Fatalf("dry-run must not create %s", dir)
	}
}

func TestEmit_WritesFiles(t *testing.T) {
	t.Parallel()
	doc, sm := minimalModel(t)
	dir := t.TempDir()

	if _, err := Emit(context.Background(), doc, sm, Options{OutDir: dir, Format: "json"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "openapi.json"))
	if err != nil {
		t.Fatalf("read openapi.json: %v", err)
	}
	loaded, err := openapi3.NewLoader().LoadFromData(raw)
	if err != nil {
		t.Fatalf("reload openapi.json: %v", err)
	}
	if err := loaded.Validate(context.Background()); err != nil {
		t.Fatalf("reloaded document invalid: %v", err)
	}
	if loaded.Paths["/users/{id}"] == nil {
		t.Fatalf("missing path in reloaded document")
	}

	raw, err = os.ReadFile(filepath.Join(dir, "endpoints.json"))
	if err != nil {
		t.Fatalf("read endpoints.json: %v", err)
	}
	var records []struct {
		Signature string        `json:"signature"`
		Location  string        `json:"location"`
		AST       *dsl.Endpoint `json:"ast"`
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("decode endpoints.json: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Signature != "GET /users/{id:int}?full:bool -> User" || records[0].Location != "api.txt:1" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if records[0].AST.Path[1] != dsl.PathVariable("id", dsl.TypeInt) {
		t.Fatalf("unexpected AST: %+v", records[0].AST)
	}
}

func TestEmit_RefusesNonEmptyDir(t *testing.T) {
	t.Parallel()
	doc, sm := minimalModel(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}
	_, err := Emit(context.Background(), doc, sm, Options{OutDir: dir})
	if err == nil || !strings.Contains(err.Error(), "not empty") {
		t.Fatalf("expected non-empty dir error, got %v", err)
	}
	if _, err := Emit(context.Background(), doc, sm, Options{OutDir: dir, Force: true}); err != nil {
		t.Fatalf("emit with force: %v", err)
	}
}

func TestEmit_RequiresParsedAST(t *testing.T) {
	t.Parallel()
	doc, sm := minimalModel(t)
	sm.Endpoints[0].AST = nil
	_, err := Emit(context.Background(), doc, sm, Options{OutDir: t.TempDir(), DryRun: true})
	if err == nil || !strings.Contains(err.Error(), "no parsed signature") {
		t.Fatalf("expected missing AST error, got %v", err)
	}
}

func TestEmit_UnsupportedFormat(t *testing.T) {
	t.Parallel()
	doc, sm := minimalModel(t)
	if _, err := Emit(context.Background(), doc, sm, Options{OutDir: t.TempDir(), Format: "toml"}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestMarshalYAML(t *testing.T) {
	t.Parallel()
	doc, _ := minimalModel(t)
	b, err := MarshalYAML(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{"openapi: 3.0.3", "title: Sample API", "/users/{id}", "operationId: getUsersById"} {
		if !strings.Contains(s, want) {
			t.Fatalf("yaml missing %q:\n%s", want, s)
		}
	}
}
