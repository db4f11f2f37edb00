package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/endpointdsl/internal/emitter/docemitter"
	genspec "github.com/mark3labs/endpointdsl/internal/spec"
)

var exportRunner = runExport

const defaultExportDir = "openapi"

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [manifest]",
		Short: "Export a manifest as an OpenAPI document",
		Long: "Export a manifest of endpoint signatures as a validated OpenAPI 3 document " +
			"plus an endpoints.json dump of the parsed syntax trees. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  endpointdsl export endpoints.yaml --out ./api
  endpointdsl export --input endpoints.txt --format json --title "Users API"
  endpointdsl --config endpointdsl.yaml export --force --dry-run`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Input = strings.TrimSpace(args[0])
			}
			return exportRunner(cmd.Context(), cfg, newRunEnv(cmd, args, cfg))
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the manifest ('-' for stdin)")
	flags.String("format", "", "OpenAPI document format (yaml|json); defaults to yaml")
	flags.String("out", "", "Output directory (defaults to ./openapi)")
	flags.String("title", "", "Override the document title")
	flags.String("version", "", "Override the document version")
	flags.StringSlice("include-tags", nil, "Only include endpoints with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude endpoints with these tags")
	flags.StringSlice("methods", nil, "Only include endpoints with these methods")
	flags.StringSlice("path-patterns", nil, "Only include endpoints whose path matches one of these regexps")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")
	addLimitFlags(flags)

	return cmd
}

func runExport(ctx context.Context, cfg *Config, env *runEnv) error {
	if cfg.Input == "" {
		return newUsageError("export: a manifest is required (argument, --input or config input)")
	}
	format := cfg.Format
	switch format {
	case "":
		format = "yaml"
	case "yaml", "json":
	default:
		return newUsageError(fmt.Sprintf("export: unsupported --format %q (allowed: yaml, json)", cfg.Format))
	}
	patterns, err := cfg.CompiledPathPatterns()
	if err != nil {
		return err
	}

	// 1) Load and parse every signature; any syntax error stops the export.
	m, err := loadManifest(ctx, cfg, env)
	if err != nil {
		return specUsageError(err)
	}
	res, err := genspec.ParseEntries(ctx, m, cfg.ParseOptions()...)
	if err != nil {
		return err
	}
	if !res.OK() {
		renderDiagnostics(env.errOut, res.Diagnostics)
		return diagnosticsError{count: len(res.Diagnostics)}
	}

	// 2) Build the service model with filters and overrides.
	sm, err := genspec.BuildServiceModel(ctx, m, res.Endpoints,
		genspec.WithIncludeTags(cfg.IncludeTags),
		genspec.WithExcludeTags(cfg.ExcludeTags),
		genspec.WithMethods(cfg.MethodFilter()),
		genspec.WithPathPatterns(patterns),
		genspec.WithTitle(cfg.Title),
		genspec.WithVersion(cfg.Version),
	)
	if err != nil {
		return manifestError(err)
	}
	env.logger.Debug("built service model", "endpoints", len(sm.Endpoints), "types", len(sm.TypeNames))

	// 3) Map to OpenAPI and validate.
	doc, err := genspec.ToOpenAPI(ctx, sm)
	if err != nil {
		return manifestError(err)
	}

	// 4) Emit.
	outDir := cfg.Out
	if outDir == "" {
		outDir = defaultExportDir
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}
	out, err := docemitter.Emit(ctx, doc, sm, docemitter.Options{
		OutDir: outDir,
		Format: format,
		Force:  cfg.Force,
		DryRun: cfg.DryRun,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}

	paths := make([]string, 0, len(out.Planned))
	for _, p := range out.Planned {
		paths = append(paths, p.RelPath)
	}
	if cfg.DryRun {
		printPlan(env.out, absOut, paths)
		return nil
	}
	env.logger.Info("exported manifest", "input", m.Location, "out", absOut, "files", len(paths))
	fmt.Fprintf(env.out, "Wrote %d files to %s\n", len(paths), absOut)
	return nil
}

func printPlan(w io.Writer, outDir string, relPaths []string) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}
