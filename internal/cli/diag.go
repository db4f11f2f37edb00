package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	genspec "github.com/mark3labs/endpointdsl/internal/spec"
)

// colorEnabled reports whether w is a terminal and NO_COLOR is unset.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type diagStyles struct {
	position lipgloss.Style
	kind     lipgloss.Style
	caret    lipgloss.Style
	summary  lipgloss.Style
}

func newDiagStyles(w io.Writer, color bool) diagStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return diagStyles{position: plain, kind: plain, caret: plain, summary: plain}
	}
	r := lipgloss.NewRenderer(w)
	return diagStyles{
		position: r.NewStyle().Bold(true),
		kind:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		caret:    r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		summary:  r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// renderDiagnostic writes one diagnostic as a header, the offending source
// line, and a caret under the failing column:
//
//	api.txt:3:15: UnknownVariableType: expected a variable type, found "integer"
//	    GET /users/{id:integer}
//	                   ^
func renderDiagnostic(w io.Writer, st diagStyles, d genspec.Diagnostic) {
	perr := d.Err
	fmt.Fprintf(w, "%s: %s: expected %s, found %s\n",
		st.position.Render(d.Position()), st.kind.Render(string(perr.Kind)), perr.Expected, perr.Found)

	line := perr.SourceLine()
	fmt.Fprintf(w, "    %s\n", line)
	fmt.Fprintf(w, "    %s%s\n", caretPadding(line, perr.Column()), st.caret.Render("^"))
}

// caretPadding keeps tabs before column so the caret lines up in a terminal.
func caretPadding(line string, column int) string {
	var b strings.Builder
	for i := 0; i < column-1 && i < len(line); i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	for i := len(line); i < column-1; i++ {
		b.WriteByte(' ')
	}
	return b.String()
}

func renderDiagnostics(w io.Writer, diags []genspec.Diagnostic) {
	st := newDiagStyles(w, colorEnabled(w))
	for _, d := range diags {
		renderDiagnostic(w, st, d)
	}
}
