package dsl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes parse failures.
type ErrorKind string

const (
	UnknownMethod         ErrorKind = "UnknownMethod"
	MissingSeparator      ErrorKind = "MissingSeparator"
	PathSyntaxError       ErrorKind = "PathSyntaxError"
	UnknownVariableType   ErrorKind = "UnknownVariableType"
	QueryParamSyntaxError ErrorKind = "QueryParamSyntaxError"
	TypeNameSyntaxError   ErrorKind = "TypeNameSyntaxError"
	TrailingInputError    ErrorKind = "TrailingInputError"
	LimitExceeded         ErrorKind = "LimitExceeded"
)

// Sentinels for errors.Is matching against a *ParseError of the same kind.
var (
	ErrUnknownMethod       = errors.New("dsl: unknown method")
	ErrMissingSeparator    = errors.New("dsl: missing separator")
	ErrPathSyntax          = errors.New("dsl: path syntax error")
	ErrUnknownVariableType = errors.New("dsl: unknown variable type")
	ErrQueryParamSyntax    = errors.New("dsl: query parameter syntax error")
	ErrTypeNameSyntax      = errors.New("dsl: type name syntax error")
	ErrTrailingInput       = errors.New("dsl: trailing input")
	ErrLimitExceeded       = errors.New("dsl: limit exceeded")
)

var kindSentinels = map[ErrorKind]error{
	UnknownMethod:         ErrUnknownMethod,
	MissingSeparator:      ErrMissingSeparator,
	PathSyntaxError:       ErrPathSyntax,
	UnknownVariableType:   ErrUnknownVariableType,
	QueryParamSyntaxError: ErrQueryParamSyntax,
	TypeNameSyntaxError:   ErrTypeNameSyntax,
	TrailingInputError:    ErrTrailingInput,
	LimitExceeded:         ErrLimitExceeded,
}

// ParseError reports the first failure of a parse. Offset is a byte offset
// into Input.
type ParseError struct {
	Kind     ErrorKind
	Offset   int
	Expected string
	Found    string
	Input    string
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s at %d:%d: expected %s, found %s", e.Kind, e.Line(), e.Column(), e.Expected, e.Found)
}

// Is matches the sentinel error for e.Kind.
func (e *ParseError) Is(target error) bool {
	if e == nil {
		return false
	}
	return kindSentinels[e.Kind] == target
}

// Line returns the 1-based line of Offset. \r\n, \r and \n all end a line.
func (e *ParseError) Line() int {
	line, _ := e.position()
	return line
}

// Column returns the 1-based byte column of Offset within its line.
func (e *ParseError) Column() int {
	_, col := e.position()
	return col
}

func (e *ParseError) position() (int, int) {
	line, start := 1, 0
	end := e.Offset
	if end > len(e.Input) {
		end = len(e.Input)
	}
	for i := 0; i < end; i++ {
		switch e.Input[i] {
		case '\n':
			line++
			start = i + 1
		case '\r':
			if i+1 < len(e.Input) && e.Input[i+1] == '\n' {
				continue
			}
			line++
			start = i + 1
		}
	}
	return line, e.Offset - start + 1
}

// SourceLine returns the text of the line holding Offset, without its
// terminator.
func (e *ParseError) SourceLine() string {
	normalized := strings.ReplaceAll(e.Input, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")
	if n := e.Line(); n-1 < len(lines) {
		return lines[n-1]
	}
	return ""
}

func newError(kind ErrorKind, input string, offset int, expected string) *ParseError {
	return &ParseError{
		Kind:     kind,
		Offset:   offset,
		Expected: expected,
		Found:    describeAt(input, offset),
		Input:    input,
	}
}
