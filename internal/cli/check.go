package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	genspec "github.com/mark3labs/endpointdsl/internal/spec"
)

var checkRunner = runCheck

// watchDebounce collapses the burst of events editors emit for one save.
const watchDebounce = 100 * time.Millisecond

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [manifest]",
		Short: "Report syntax errors and duplicate routes in a manifest",
		Long: "Check every signature in a manifest (plain text, one per line, or YAML with an " +
			"endpoints list). Use '-' to read the manifest from stdin.",
		Example: strings.TrimSpace(`  endpointdsl check endpoints.txt
  endpointdsl check --watch endpoints.yaml
  endpointdsl --config endpointdsl.yaml check`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Input = strings.TrimSpace(args[0])
			}
			return checkRunner(cmd.Context(), cfg, newRunEnv(cmd, args, cfg))
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the manifest ('-' for stdin)")
	flags.Bool("watch", false, "Re-check the manifest whenever it changes")
	addLimitFlags(flags)

	return cmd
}

func runCheck(ctx context.Context, cfg *Config, env *runEnv) error {
	if cfg.Input == "" {
		return newUsageError("check: a manifest is required (argument, --input or config input)")
	}
	if !cfg.Watch {
		return checkOnce(ctx, cfg, env)
	}
	if cfg.Input == "-" || isRemote(cfg.Input) {
		return newUsageError("check: --watch needs a local manifest file")
	}
	return watchManifest(ctx, cfg, env)
}

func isRemote(input string) bool {
	u, err := url.Parse(input)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func loadManifest(ctx context.Context, cfg *Config, env *runEnv) (*genspec.Manifest, error) {
	if cfg.Input == "-" {
		return genspec.LoadReader(env.in, "stdin")
	}
	return genspec.Load(ctx, cfg.Input)
}

// checkOnce loads and checks the manifest, printing diagnostics to stderr and
// a one-line summary to stdout.
func checkOnce(ctx context.Context, cfg *Config, env *runEnv) error {
	m, err := loadManifest(ctx, cfg, env)
	if err != nil {
		return specUsageError(err)
	}
	res, err := genspec.ParseEntries(ctx, m, cfg.ParseOptions()...)
	if err != nil {
		return err
	}
	renderDiagnostics(env.errOut, res.Diagnostics)

	problems := len(res.Diagnostics)
	var conflict *genspec.SpecError
	if _, err := genspec.BuildServiceModel(ctx, m, res.Endpoints); err != nil {
		if !errors.As(err, &conflict) {
			return err
		}
		fmt.Fprintf(env.errOut, "%s: %s\n", conflict.Location, conflict.Message)
		problems++
	}

	st := newDiagStyles(env.out, colorEnabled(env.out))
	summary := fmt.Sprintf("%s: %d endpoints, %d problems", m.Location, len(m.Entries), problems)
	fmt.Fprintln(env.out, st.summary.Render(summary))
	env.logger.Debug("checked manifest", "location", m.Location, "entries", len(m.Entries), "problems", problems)

	if len(res.Diagnostics) > 0 {
		return diagnosticsError{count: len(res.Diagnostics)}
	}
	if conflict != nil {
		return manifestError(conflict)
	}
	return nil
}

// watchManifest checks the manifest once, then again after every write until
// ctx is done. The parent directory is watched so editors that replace the
// file on save keep triggering checks.
func watchManifest(ctx context.Context, cfg *Config, env *runEnv) error {
	abs, err := filepath.Abs(cfg.Input)
	if err != nil {
		return newUsageError(fmt.Sprintf("check: resolve %q: %v", cfg.Input, err))
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("check: start watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return newUsageError(fmt.Sprintf("check: watch %s: %v", filepath.Dir(abs), err))
	}

	recheck := func() {
		if err := checkOnce(ctx, cfg, env); err != nil && !errors.Is(err, ErrDiagnostics) && !errors.Is(err, ErrManifest) {
			env.logger.Warn("check failed", "input", abs, "error", err)
		}
	}
	recheck()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			env.logger.Debug("manifest changed", "event", ev.Op.String())
			debounce = time.After(watchDebounce)
		case <-debounce:
			debounce = nil
			recheck()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			env.logger.Warn("watch error", "error", err)
		}
	}
}
