package spec

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/endpointdsl/internal/dsl"
)

// Diagnostic is a signature that failed to parse, positioned in the manifest.
type Diagnostic struct {
	Location string // manifest location
	Line     int    // 1-based line in the manifest
	Column   int    // 1-based column in the manifest
	Entry    Entry
	Err      *dsl.ParseError
}

// Position renders "location:line:col".
func (d Diagnostic) Position() string {
	return fmt.Sprintf("%s:%d:%d", d.Location, d.Line, d.Column)
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: expected %s, found %s", d.Position(), d.Err.Kind, d.Err.Expected, d.Err.Found)
}

// ParseResult holds the outcome of parsing every entry of a manifest, both in
// manifest order.
type ParseResult struct {
	Endpoints   []ParsedEndpoint
	Diagnostics []Diagnostic
}

// OK reports whether every entry parsed.
func (r *ParseResult) OK() bool { return len(r.Diagnostics) == 0 }

type parseConfig struct {
	workers int
	parser  *dsl.Parser
}

// ParseOption configures ParseEntries.
type ParseOption func(*parseConfig)

// WithWorkers bounds the number of signatures parsed concurrently. Values
// below 1 select GOMAXPROCS.
func WithWorkers(n int) ParseOption { return func(c *parseConfig) { c.workers = n } }

// WithParser sets the parser, and therefore the limits, used for each entry.
func WithParser(p *dsl.Parser) ParseOption { return func(c *parseConfig) { c.parser = p } }

// ParseEntries parses every entry of m. Syntax errors do not abort the run;
// they are collected as diagnostics. The returned error is non-nil only when
// ctx is cancelled.
func ParseEntries(ctx context.Context, m *Manifest, opts ...ParseOption) (*ParseResult, error) {
	if m == nil {
		return nil, fmt.Errorf("nil manifest")
	}
	cfg := parseConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	if cfg.parser == nil {
		cfg.parser = dsl.NewParser()
	}

	type outcome struct {
		ep   *dsl.Endpoint
		perr *dsl.ParseError
	}
	outcomes := make([]outcome, len(m.Entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i := range m.Entries {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ep, err := cfg.parser.Parse(m.Entries[i].Signature)
			if err != nil {
				var perr *dsl.ParseError
				if !errors.As(err, &perr) {
					return err
				}
				outcomes[i].perr = perr
				return nil
			}
			outcomes[i].ep = ep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &ParseResult{}
	for i, o := range outcomes {
		entry := m.Entries[i]
		if o.perr != nil {
			res.Diagnostics = append(res.Diagnostics, newDiagnostic(m.Location, entry, o.perr))
			continue
		}
		res.Endpoints = append(res.Endpoints, ParsedEndpoint{Entry: entry, Endpoint: o.ep})
	}
	return res, nil
}

// newDiagnostic maps the error position inside the signature back onto the
// manifest. The first line of a signature starts at the entry column.
func newDiagnostic(location string, entry Entry, perr *dsl.ParseError) Diagnostic {
	line := entry.Line + perr.Line() - 1
	col := perr.Column()
	if perr.Line() == 1 {
		col += entry.Column - 1
	}
	if entry.Line == 0 {
		line = perr.Line()
	}
	return Diagnostic{
		Location: location,
		Line:     line,
		Column:   col,
		Entry:    entry,
		Err:      perr,
	}
}

// ParseSignatures is a convenience for callers holding bare signatures, such
// as CLI arguments. Each signature becomes an entry whose Line is its 1-based
// index.
func ParseSignatures(ctx context.Context, location string, signatures []string, opts ...ParseOption) (*ParseResult, error) {
	m := &Manifest{Location: location}
	for i, s := range signatures {
		m.Entries = append(m.Entries, Entry{Signature: s, Line: i + 1, Column: 1})
	}
	return ParseEntries(ctx, m, opts...)
}
