package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

const defaultConfigFile = "endpointdsl.yaml"

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample endpointdsl configuration file",
		Long:  "Scaffold a commented endpointdsl configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig, stdout io.Writer) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force && st.Mode().IsRegular() {
		return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML documents every key resolveConfig accepts.
const sampleConfigYAML = `# endpointdsl configuration (YAML)
# All fields are optional. Command-line flags override config values.
# Keys are case-insensitive; dashes and underscores are ignored.

# Manifest path or http/https URL, used by check and export. Use - for stdin.
# input: ./endpoints.yaml

# parse: text|json|yaml. export: yaml|json (defaults to yaml).
# format: yaml

# Export output directory. Defaults to ./openapi.
# out: ./openapi

# Override the document title and version from the manifest.
# title: Users API
# version: 1.0.0

# Only export endpoints with these tags (comma-separated or list).
# includeTags: [public]

# Skip endpoints with these tags.
# excludeTags: [internal]

# Only export endpoints with these methods (GET, POST, PUT, DELETE).
# methods: [GET]

# Only export endpoints whose path matches one of these regular expressions.
# pathPatterns: ['^/users']

# Signatures parsed concurrently. 0 uses GOMAXPROCS.
# workers: 0

# Parser limits. 0 disables a limit.
# maxInputLength: 4096
# maxPathComponents: 64
# maxQueryParams: 64

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite a non-empty output directory.
# force: false

# Re-run check whenever the manifest changes.
# watch: false

# Enable verbose logging.
# verbose: false
`
