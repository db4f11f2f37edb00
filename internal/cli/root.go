package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Execute runs the endpointdsl CLI. SIGINT and SIGTERM cancel the command
// context, which stops check --watch cleanly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpointdsl",
		Short: "Parse, check and export endpoint signatures",
		Long: "endpointdsl parses compact endpoint signatures such as " +
			"'GET /users/{id:int}?active:bool -> UserList', reports syntax errors " +
			"with positions, and exports manifests of signatures as OpenAPI documents.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.SetFlagErrorFunc(flagUsageError)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	for _, sub := range []*cobra.Command{newParseCmd(), newCheckCmd(), newExportCmd(), newInitCmd()} {
		sub.SetFlagErrorFunc(flagUsageError)
		cmd.AddCommand(sub)
	}

	return cmd
}

// Convert Cobra flag errors (like unknown flags) into usage errors that also
// show the command's help text.
func flagUsageError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

// runEnv is what a command runner needs besides its config.
type runEnv struct {
	args   []string
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

func newRunEnv(cmd *cobra.Command, args []string, cfg *Config) *runEnv {
	return &runEnv{
		args:   args,
		in:     cmd.InOrStdin(),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		logger: newLogger(cmd.ErrOrStderr(), cfg.Verbose),
	}
}
