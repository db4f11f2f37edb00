package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const exportManifestYAML = `title: Users API
version: 1.0.0
endpoints:
  - endpoint: GET /users?active:bool -> UserList
    tags: [users]
  - endpoint: GET /users/{id:int} -> User
    name: getUser
    tags: [users]
  - endpoint: DELETE /admin/users/{id:int}
    tags: [admin]
`

func TestExport_DryRun(t *testing.T) {
	t.Parallel()
	p := writeManifest(t, "api.yaml", exportManifestYAML)
	outDir := filepath.Join(t.TempDir(), "out")

	out, _, err := runRoot(t, "", "export", p, "--out", outDir, "--dry-run")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Planned writes to") || !strings.Contains(out, "- openapi.yaml") || !strings.Contains(out, "- endpoints.json") {
		t.Fatalf("expected dry-run plan output, got: %s", out)
	}
	if _, err := os.Stat(outDir); err == nil {
		t.Fatalf("expected no writes on dry-run")
	}
}

func TestExport_WritesFilteredJSON(t *testing.T) {
	t.Parallel()
	p := writeManifest(t, "api.yaml", exportManifestYAML)
	outDir := filepath.Join(t.TempDir(), "out")

	out, _, err := runRoot(t, "", "export", "--input", p, "--out", outDir, "--format", "json", "--exclude-tags", "admin", "--title", "Override")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Wrote 2 files to") {
		t.Fatalf("unexpected output: %s", out)
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "openapi.json"))
	if err != nil {
		t.Fatalf("read openapi.json: %v", err)
	}
	var doc struct {
		Info  struct{ Title string } `json:"info"`
		Paths map[string]any         `json:"paths"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode openapi.json: %v", err)
	}
	if doc.Info.Title != "Override" {
		t.Fatalf("title override not applied: %q", doc.Info.Title)
	}
	if len(doc.Paths) != 2 || doc.Paths["/admin/users/{id}"] != nil {
		t.Fatalf("tag filter not applied: %v", doc.Paths)
	}

	// A second export into the same directory needs --force.
	_, _, err = runRoot(t, "", "export", "--input", p, "--out", outDir, "--format", "json")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for non-empty dir, got %v", err)
	}
	if _, _, err := runRoot(t, "", "export", "--input", p, "--out", outDir, "--format", "json", "--force"); err != nil {
		t.Fatalf("export with force: %v", err)
	}
}

func TestExport_StopsOnDiagnostics(t *testing.T) {
	t.Parallel()
	p := writeManifest(t, "api.txt", "GET /ok\nGET /users/{id\n")
	outDir := filepath.Join(t.TempDir(), "out")

	_, errOut, err := runRoot(t, "", "export", p, "--out", outDir)
	if !errors.Is(err, ErrDiagnostics) {
		t.Fatalf("expected diagnostics error, got %v", err)
	}
	if !strings.Contains(errOut, "PathSyntaxError") {
		t.Fatalf("stderr missing diagnostic:\n%s", errOut)
	}
	if _, err := os.Stat(outDir); err == nil {
		t.Fatalf("nothing should be written when signatures fail")
	}
}

func TestExport_HonorsParserLimits(t *testing.T) {
	t.Parallel()
	sig := "GET " + strings.Repeat("/a", 70)
	p := writeManifest(t, "api.txt", sig+"\n")

	if _, _, err := runRoot(t, "", "check", p, "--max-path-components", "0"); err != nil {
		t.Fatalf("check with unlimited components: %v", err)
	}

	outDir := filepath.Join(t.TempDir(), "out")
	if _, _, err := runRoot(t, "", "export", p, "--max-path-components", "0", "--out", outDir, "--format", "json"); err != nil {
		t.Fatalf("export with unlimited components: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(outDir, "endpoints.json"))
	if err != nil {
		t.Fatalf("read endpoints.json: %v", err)
	}
	var records []struct {
		Signature string `json:"signature"`
		AST       struct {
			Path []json.RawMessage `json:"path"`
		} `json:"ast"`
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("decode endpoints.json: %v", err)
	}
	if len(records) != 1 || records[0].Signature != sig || len(records[0].AST.Path) != 70 {
		t.Fatalf("unexpected records: %d", len(records))
	}

	// The default limit still applies when the flag is not given.
	_, errOut, err := runRoot(t, "", "export", p, "--dry-run")
	if !errors.Is(err, ErrDiagnostics) || !strings.Contains(errOut, "LimitExceeded") {
		t.Fatalf("expected LimitExceeded under default limits, got %v\n%s", err, errOut)
	}
}

func TestExport_DuplicateOperationNameIsManifestError(t *testing.T) {
	t.Parallel()
	p := writeManifest(t, "api.yaml", "endpoints:\n  - endpoint: GET /a\n    name: fetch\n  - endpoint: GET /b\n    name: fetch\n")
	_, _, err := runRoot(t, "", "export", p, "--dry-run")
	if !errors.Is(err, ErrManifest) || errors.Is(err, ErrUsage) {
		t.Fatalf("expected manifest error, got %v", err)
	}
}

func TestExport_RejectsTextFormat(t *testing.T) {
	t.Parallel()
	p := writeManifest(t, "api.txt", "GET /ok\n")
	_, _, err := runRoot(t, "", "export", p, "--format", "text", "--dry-run")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestExport_MissingManifest(t *testing.T) {
	t.Parallel()
	_, _, err := runRoot(t, "", "export", filepath.Join(t.TempDir(), "missing.txt"), "--dry-run")
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "manifest:") {
		t.Fatalf("expected manifest usage error, got %v", err)
	}
}
