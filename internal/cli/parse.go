package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/endpointdsl/internal/dsl"
	genspec "github.com/mark3labs/endpointdsl/internal/spec"
)

var parseRunner = runParse

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [signature...]",
		Short: "Parse endpoint signatures and print their syntax trees",
		Long: "Parse endpoint signatures given as arguments, or one per line on stdin " +
			"when no arguments are given, and print the parsed endpoints.",
		Example: strings.TrimSpace(`  endpointdsl parse 'GET /users/{id:int}?active:bool -> UserList'
  endpointdsl parse --format json 'POST /register RegisterRequest -> User'
  cat endpoints.txt | endpointdsl parse --format yaml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return parseRunner(cmd.Context(), cfg, newRunEnv(cmd, args, cfg))
		},
	}

	flags := cmd.Flags()
	flags.String("format", "", "Output format (text|json|yaml); defaults to text")
	addLimitFlags(flags)

	return cmd
}

func runParse(ctx context.Context, cfg *Config, env *runEnv) error {
	var (
		res *genspec.ParseResult
		err error
	)
	if len(env.args) > 0 {
		res, err = genspec.ParseSignatures(ctx, "arg", env.args, cfg.ParseOptions()...)
	} else {
		m, lerr := genspec.LoadReader(env.in, "stdin")
		if lerr != nil {
			return specUsageError(lerr)
		}
		res, err = genspec.ParseEntries(ctx, m, cfg.ParseOptions()...)
	}
	if err != nil {
		return err
	}
	env.logger.Debug("parsed signatures",
		"endpoints", len(res.Endpoints), "diagnostics", len(res.Diagnostics))

	renderDiagnostics(env.errOut, res.Diagnostics)

	endpoints := make([]*dsl.Endpoint, 0, len(res.Endpoints))
	for _, pe := range res.Endpoints {
		endpoints = append(endpoints, pe.Endpoint)
	}
	if err := writeEndpoints(env.out, cfg.Format, endpoints); err != nil {
		return err
	}

	if !res.OK() {
		return diagnosticsError{count: len(res.Diagnostics)}
	}
	return nil
}

func writeEndpoints(w io.Writer, format string, endpoints []*dsl.Endpoint) error {
	switch format {
	case "", "text":
		for i, ep := range endpoints {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeEndpointText(w, ep)
		}
		return nil
	case "json":
		b, err := json.MarshalIndent(endpoints, "", "  ")
		if err != nil {
			return fmt.Errorf("parse: marshal json: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(endpoints); err != nil {
			return fmt.Errorf("parse: marshal yaml: %w", err)
		}
		return enc.Close()
	default:
		return newUsageError(fmt.Sprintf("parse: unsupported --format %q (allowed: text, json, yaml)", format))
	}
}

func writeEndpointText(w io.Writer, ep *dsl.Endpoint) {
	fmt.Fprintln(w, ep.String())
	fmt.Fprintf(w, "  method:   %s\n", ep.Method)
	for i, c := range ep.Path {
		label := ""
		if i == 0 {
			label = "path:"
		}
		fmt.Fprintf(w, "  %-9s %-8s %s\n", label, c.Kind, c)
	}
	if len(ep.QueryParams) > 0 {
		parts := make([]string, 0, len(ep.QueryParams))
		for _, q := range ep.QueryParams {
			parts = append(parts, q.String())
		}
		fmt.Fprintf(w, "  query:    %s\n", strings.Join(parts, ", "))
	}
	if ep.RequestType != "" {
		fmt.Fprintf(w, "  request:  %s\n", ep.RequestType)
	}
	if ep.ResponseType != "" {
		fmt.Fprintf(w, "  response: %s\n", ep.ResponseType)
	}
}
