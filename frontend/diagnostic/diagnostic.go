// Package diagnostic holds the structured error/warning/note records the
// frontend reports. It is a small, self-contained data type — the "token
// level... diagnostic emission" subsystems named as out-of-scope external
// collaborators in the spec are the pretty-printers that would render these
// records to a terminal; this package only defines the record shape and a
// plain-text renderer good enough for tests and the CLI.
package diagnostic

import (
	"fmt"
	"strings"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Pos is a byte offset with its line/column for display.
type Pos struct {
	Offset int
	Line   int
	Column int
}

// Span is a half-open range [Start, End) within a single source File.
type Span struct {
	File  string
	Start Pos
	End   Pos
}

func (s Span) String() string {
	if s.Start.Line == s.End.Line {
		return fmt.Sprintf("%s:%d:%d-%d", s.File, s.Start.Line, s.Start.Column, s.End.Column)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.File, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// Labeled attaches a short message to a Span, used for the primary
// location of a Diagnostic and for its cross-reference notes ("defined
// here" / "used here").
type Labeled struct {
	Span    Span
	Message string
}

// Diagnostic is one structured error/warning/note emitted during lowering.
// A Diagnostic with one or more Notes models the multi-span case (e.g. a
// "variable already used" error whose Primary points at the second use and
// whose first Note points at the first use).
type Diagnostic struct {
	Severity Severity
	Code     string // short machine-stable identifier, e.g. "E0103"
	Primary  Labeled
	Notes    []Labeled
}

// New builds an Error-severity Diagnostic with no notes.
func New(code string, span Span, message string) Diagnostic {
	return Diagnostic{
		Severity: Error,
		Code:     code,
		Primary:  Labeled{Span: span, Message: message},
	}
}

// WithNote appends a cross-reference note and returns the Diagnostic.
func (d Diagnostic) WithNote(span Span, message string) Diagnostic {
	d.Notes = append(d.Notes, Labeled{Span: span, Message: message})
	return d
}

// String renders a Diagnostic as plain text, primary line first, then
// notes indented beneath it.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s] %s: %s", d.Severity, d.Code, d.Primary.Span, d.Primary.Message)
	for _, n := range d.Notes {
		fmt.Fprintf(&b, "\n    note: %s: %s", n.Span, n.Message)
	}
	return b.String()
}

// List is an accumulated batch of diagnostics from one lowering pass.
type List []Diagnostic

// HasErrors reports whether any Diagnostic in the list is Error severity.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (l List) String() string {
	lines := make([]string, len(l))
	for i, d := range l {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
