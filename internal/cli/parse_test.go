package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/endpointdsl/internal/dsl"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestParse_TextOutput(t *testing.T) {
	t.Parallel()
	_, _, err := runRoot(t, "", "parse", "Get /users/{id:int}?active:bool -> UserList")
	if !errors.Is(err, ErrDiagnostics) {
		t.Fatalf("mixed-case method must fail, got %v", err)
	}

	out, _, err := runRoot(t, "", "parse", "get /users/{id:int}?active:bool -> UserList")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{
		"GET /users/{id:int}?active:bool -> UserList\n",
		"method:   GET",
		"segment  /users",
		"variable /{id:int}",
		"query:    active:bool",
		"response: UserList",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "request:") {
		t.Errorf("request line printed for signature without request type:\n%s", out)
	}
}

func TestParse_JSONOutput(t *testing.T) {
	t.Parallel()
	out, _, err := runRoot(t, "", "parse", "--format", "json", "POST /register RegisterRequest -> User", "DELETE /users/{id:long}")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var eps []dsl.Endpoint
	if err := json.Unmarshal([]byte(out), &eps); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(eps) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(eps))
	}
	if eps[0].Method != dsl.POST || eps[0].RequestType != "RegisterRequest" || eps[0].ResponseType != "User" {
		t.Fatalf("unexpected first endpoint: %+v", eps[0])
	}
	if eps[1].Path[1] != dsl.PathVariable("id", dsl.TypeLong) {
		t.Fatalf("unexpected second endpoint: %+v", eps[1])
	}
}

func TestParse_StdinYAML(t *testing.T) {
	t.Parallel()
	stdin := "GET /a\n# comment\n\nPOST /b Req -> Res\n"
	out, _, err := runRoot(t, stdin, "parse", "--format", "yaml")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"method: GET", "method: POST", "requestType: Req", "responseType: Res", "queryParams: []"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParse_DiagnosticWithCaret(t *testing.T) {
	t.Parallel()
	out, errOut, err := runRoot(t, "", "parse", "GET /ok", "GET /users/{id:integer}")
	if !errors.Is(err, ErrDiagnostics) {
		t.Fatalf("expected diagnostics error, got %v", err)
	}
	if err.Error() != "1 signature failed to parse" {
		t.Fatalf("unexpected error text: %v", err)
	}
	if !strings.Contains(out, "GET /ok") {
		t.Fatalf("valid signature should still be printed:\n%s", out)
	}
	want := "arg:2:16: UnknownVariableType: expected "
	if !strings.Contains(errOut, want) {
		t.Fatalf("stderr missing %q:\n%s", want, errOut)
	}
	caret := "    GET /users/{id:integer}\n    " + strings.Repeat(" ", 15) + "^\n"
	if !strings.Contains(errOut, caret) {
		t.Fatalf("stderr missing caret block:\n%s", errOut)
	}
}

func TestParse_LimitFlag(t *testing.T) {
	t.Parallel()
	_, errOut, err := runRoot(t, "", "parse", "--max-path-components", "1", "GET /a/b")
	if !errors.Is(err, ErrDiagnostics) {
		t.Fatalf("expected diagnostics error, got %v", err)
	}
	if !strings.Contains(errOut, "LimitExceeded") {
		t.Fatalf("stderr missing LimitExceeded:\n%s", errOut)
	}
}

func TestCaretPadding(t *testing.T) {
	t.Parallel()
	if got := caretPadding("\tab", 3); got != "\t " {
		t.Fatalf("got %q", got)
	}
	if got := caretPadding("ab", 4); got != "   " {
		t.Fatalf("past end of line: got %q", got)
	}
}
