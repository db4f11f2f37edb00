package dsl

import (
	"fmt"
	"strings"
)

// Limits bounds the work a single parse may do. A zero field disables the
// corresponding check.
type Limits struct {
	MaxInputLength    int
	MaxPathComponents int
	MaxQueryParams    int
}

// DefaultLimits returns the limits used by Parse.
func DefaultLimits() Limits {
	return Limits{
		MaxInputLength:    4096,
		MaxPathComponents: 64,
		MaxQueryParams:    64,
	}
}

// Option mutates Limits.
type Option func(*Limits)

func WithMaxInputLength(n int) Option    { return func(l *Limits) { l.MaxInputLength = n } }
func WithMaxPathComponents(n int) Option { return func(l *Limits) { l.MaxPathComponents = n } }
func WithMaxQueryParams(n int) Option    { return func(l *Limits) { l.MaxQueryParams = n } }

// WithLimits replaces all limits at once.
func WithLimits(limits Limits) Option { return func(l *Limits) { *l = limits } }

// Parser parses endpoint signatures under a fixed set of limits. The zero
// value has no limits. A Parser is immutable and safe for concurrent use.
type Parser struct {
	limits Limits
}

// NewParser returns a Parser starting from DefaultLimits.
func NewParser(opts ...Option) *Parser {
	limits := DefaultLimits()
	for _, opt := range opts {
		opt(&limits)
	}
	return &Parser{limits: limits}
}

// Limits returns the limits p enforces.
func (p *Parser) Limits() Limits { return p.limits }

var defaultParser = NewParser()

// Parse parses one endpoint signature with DefaultLimits. On failure the
// returned error is a *ParseError.
func Parse(input string) (*Endpoint, error) {
	return defaultParser.Parse(input)
}

// Parse parses one endpoint signature. The whole input must be consumed; a
// trailing separator run is tolerated.
func (p *Parser) Parse(input string) (*Endpoint, error) {
	if limit := p.limits.MaxInputLength; limit > 0 && len(input) > limit {
		return nil, &ParseError{
			Kind:     LimitExceeded,
			Offset:   limit,
			Expected: fmt.Sprintf("at most %d bytes of input", limit),
			Found:    fmt.Sprintf("%d bytes", len(input)),
			Input:    input,
		}
	}
	s := &state{in: input, limits: p.limits}
	ep, perr := s.endpoint()
	if perr != nil {
		return nil, perr
	}
	return ep, nil
}

var methodLiterals = map[string]Method{
	"GET":    GET,
	"get":    GET,
	"POST":   POST,
	"post":   POST,
	"PUT":    PUT,
	"put":    PUT,
	"DELETE": DELETE,
	"delete": DELETE,
}

const typeList = "string, short, int, long, byte, float, double or bool"

type state struct {
	in     string
	pos    int
	limits Limits
}

func (s *state) peek() byte { return s.peekAt(0) }

func (s *state) peekAt(n int) byte {
	if s.pos+n < len(s.in) {
		return s.in[s.pos+n]
	}
	return 0
}

func (s *state) atEnd() bool { return s.pos >= len(s.in) }

func (s *state) atArrow() bool { return strings.HasPrefix(s.in[s.pos:], "->") }

func (s *state) fail(kind ErrorKind, expected string) *ParseError {
	return newError(kind, s.in, s.pos, expected)
}

func (s *state) endpoint() (*Endpoint, *ParseError) {
	method, err := s.method()
	if err != nil {
		return nil, err
	}
	if err := s.separator("separator after method"); err != nil {
		return nil, err
	}
	path, err := s.path()
	if err != nil {
		return nil, err
	}
	query, err := s.queryParams()
	if err != nil {
		return nil, err
	}
	ep := &Endpoint{Method: method, Path: path, QueryParams: query}
	if err := s.tails(ep); err != nil {
		return nil, err
	}
	return ep, nil
}

// method reads the leading word and accepts only the exact literals in
// methodLiterals; Get or gEt are rejected.
func (s *state) method() (Method, *ParseError) {
	n := scanWord(s.in, 0)
	if m, ok := methodLiterals[s.in[:n]]; ok && n > 0 {
		s.pos = n
		return m, nil
	}
	return "", s.fail(UnknownMethod, "method GET, POST, PUT or DELETE")
}

func (s *state) separator(expected string) *ParseError {
	n := scanSeparator(s.in, s.pos)
	if n == 0 {
		return s.fail(MissingSeparator, expected)
	}
	s.pos += n
	return nil
}

func (s *state) path() ([]PathComponent, *ParseError) {
	if s.peek() != '/' {
		return nil, s.fail(PathSyntaxError, "'/' to start the path")
	}
	var comps []PathComponent
	for s.peek() == '/' {
		if limit := s.limits.MaxPathComponents; limit > 0 && len(comps) == limit {
			return nil, s.fail(LimitExceeded, fmt.Sprintf("at most %d path components", limit))
		}
		if s.peekAt(1) == '{' {
			open := s.pos + 1
			s.pos += 2
			v, err := s.variable(PathSyntaxError, "path variable name after '{'")
			if err != nil {
				return nil, err
			}
			if s.peek() != '}' {
				return nil, s.fail(PathSyntaxError, fmt.Sprintf("'}' closing the '{' at offset %d", open))
			}
			s.pos++
			comps = append(comps, PathVariable(v.Name, v.Type))
			continue
		}
		s.pos++
		n := scanIdent(s.in, s.pos)
		if n == 0 {
			return nil, s.fail(PathSyntaxError, "segment name after '/'")
		}
		comps = append(comps, Segment(s.in[s.pos:s.pos+n]))
		s.pos += n
	}
	return comps, nil
}

// variable parses name:type. Structural failures are reported with kind so
// path variables and query parameters share one implementation.
func (s *state) variable(kind ErrorKind, what string) (Variable, *ParseError) {
	n := scanIdent(s.in, s.pos)
	if n == 0 {
		return Variable{}, s.fail(kind, what)
	}
	name := s.in[s.pos : s.pos+n]
	s.pos += n
	if s.peek() != ':' {
		return Variable{}, s.fail(kind, fmt.Sprintf("':' after %q", name))
	}
	s.pos++
	typ, err := s.variableType()
	if err != nil {
		return Variable{}, err
	}
	return Variable{Name: name, Type: typ}, nil
}

// variableType reads the whole word at the cursor so that a prefix such as
// "int" in "integer" is not accepted.
func (s *state) variableType() (VariableType, *ParseError) {
	n := scanWord(s.in, s.pos)
	t := VariableType(s.in[s.pos : s.pos+n])
	if n == 0 || !t.Valid() {
		return "", s.fail(UnknownVariableType, "variable type "+typeList)
	}
	s.pos += n
	return t, nil
}

func (s *state) queryParams() ([]Variable, *ParseError) {
	params := []Variable{}
	if s.peek() != '?' {
		return params, nil
	}
	s.pos++
	v, err := s.variable(QueryParamSyntaxError, "query parameter after '?'")
	if err != nil {
		return nil, err
	}
	params = append(params, v)
	for s.peek() == '&' {
		if limit := s.limits.MaxQueryParams; limit > 0 && len(params) == limit {
			return nil, s.fail(LimitExceeded, fmt.Sprintf("at most %d query parameters", limit))
		}
		s.pos++
		v, err := s.variable(QueryParamSyntaxError, "query parameter after '&'")
		if err != nil {
			return nil, err
		}
		params = append(params, v)
	}
	return params, nil
}

// tails parses the optional request type and the optional "-> Response"
// clause, then requires end of input.
func (s *state) tails(ep *Endpoint) *ParseError {
	sep := scanSeparator(s.in, s.pos)
	if sep == 0 {
		return s.end()
	}
	s.pos += sep
	if s.atEnd() {
		return nil
	}
	if !s.atArrow() {
		n := scanIdent(s.in, s.pos)
		if n == 0 {
			return s.fail(TrailingInputError, "request type name, '->' or end of input")
		}
		ep.RequestType = s.in[s.pos : s.pos+n]
		s.pos += n
		sep = scanSeparator(s.in, s.pos)
		if sep == 0 {
			return s.end()
		}
		s.pos += sep
		if s.atEnd() {
			return nil
		}
		if !s.atArrow() {
			return s.fail(TrailingInputError, "'->' or end of input")
		}
	}
	s.pos += len("->")
	if err := s.separator("separator after '->'"); err != nil {
		return err
	}
	n := scanIdent(s.in, s.pos)
	if n == 0 {
		return s.fail(TypeNameSyntaxError, "response type name after '->'")
	}
	ep.ResponseType = s.in[s.pos : s.pos+n]
	s.pos += n
	s.pos += scanSeparator(s.in, s.pos)
	return s.end()
}

func (s *state) end() *ParseError {
	switch {
	case s.atEnd():
		return nil
	case s.atArrow():
		return s.fail(MissingSeparator, "separator before '->'")
	default:
		return s.fail(TrailingInputError, "end of input")
	}
}
