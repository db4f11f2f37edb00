package docemitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/endpointdsl/internal/dsl"
	genspec "github.com/mark3labs/endpointdsl/internal/spec"
)

// Options controls how documents are rendered and written.
type Options struct {
	OutDir string // required; target directory
	Format string // yaml (default) or json, for the OpenAPI document
	Force  bool   // overwrite a non-empty directory
	DryRun bool   // don't write, only plan
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files.
type Result struct {
	Planned []PlannedFile
}

// endpointRecord is one element of endpoints.json.
type endpointRecord struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Signature string        `json:"signature"`
	Location  string        `json:"location"`
	Summary   string        `json:"summary,omitempty"`
	Tags      []string      `json:"tags,omitempty"`
	AST       *dsl.Endpoint `json:"ast"`
}

// Emit renders the OpenAPI document and an AST dump of the model's endpoints.
// Output bytes depend only on the inputs.
func Emit(ctx context.Context, doc *openapi3.T, sm *genspec.ServiceModel, opts Options) (*Result, error) {
	_ = ctx
	if doc == nil || sm == nil {
		return nil, fmt.Errorf("docemitter: nil document or model")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("docemitter: OutDir is required")
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "yaml"
	}

	files := map[string][]byte{}
	switch format {
	case "yaml":
		b, err := MarshalYAML(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal openapi.yaml: %w", err)
		}
		files["openapi.yaml"] = b
	case "json":
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal openapi.json: %w", err)
		}
		files["openapi.json"] = append(b, '\n')
	default:
		return nil, fmt.Errorf("docemitter: unsupported format %q (allowed: yaml, json)", opts.Format)
	}

	records := make([]endpointRecord, 0, len(sm.Endpoints))
	for _, em := range sm.Endpoints {
		if em.AST == nil {
			return nil, fmt.Errorf("docemitter: endpoint %s has no parsed signature", em.ID)
		}
		records = append(records, endpointRecord{
			ID:        em.ID,
			Name:      em.Name,
			Signature: em.Signature,
			Location:  filepath.ToSlash(filepath.Base(em.Location)),
			Summary:   em.Summary,
			Tags:      em.Tags,
			AST:       em.AST,
		})
	}
	endpointsJSON, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal endpoints.json: %w", err)
	}
	files["endpoints.json"] = append(endpointsJSON, '\n')

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return &Result{Planned: planned}, nil
}

// MarshalYAML renders doc as YAML. kin-openapi types carry JSON tags only, so
// the document goes through its JSON form first; map keys come out sorted.
func MarshalYAML(doc *openapi3.T) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("docemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		tmp := p + ".tmp"
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
