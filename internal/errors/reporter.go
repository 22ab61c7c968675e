package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a diagnostic.
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
)

// Location identifies where in the module a diagnostic applies. Unlike a
// source-text compiler, the passes here have no file/line/column to point
// at — only a function and, usually, a block within it — so Location is
// just that pair, rendered as "function:block" instead of a caret under a
// source line.
type Location struct {
	Function string
	Block    string
}

func (l Location) String() string {
	if l.Block == "" {
		return l.Function
	}
	return fmt.Sprintf("%s:%s", l.Function, l.Block)
}

// Diagnostic is a structured error or warning with an error code and an
// optional location and notes, formatted the way Reporter renders it.
type Diagnostic struct {
	Level    ErrorLevel
	Code     string
	Message  string
	Location Location
	Notes    []string
}

// Reporter formats diagnostics with Rust-like "error[CODE]: message"
// styling, colorized via fatih/color the way the rest of this codebase's
// CLI banners are.
type Reporter struct{}

func NewReporter() *Reporter { return &Reporter{} }

// Format renders a single diagnostic as a multi-line string.
func (r *Reporter) Format(d Diagnostic) string {
	var out strings.Builder

	levelColor := r.levelColor(d.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if d.Code != "" {
		out.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(string(d.Level)), d.Code, bold(d.Message)))
	} else {
		out.WriteString(fmt.Sprintf("%s: %s\n", levelColor(string(d.Level)), bold(d.Message)))
	}

	if loc := d.Location.String(); loc != "" {
		out.WriteString(fmt.Sprintf("  %s %s\n", dim("-->"), loc))
	}

	noteColor := color.New(color.FgBlue).SprintFunc()
	for _, n := range d.Notes {
		out.WriteString(fmt.Sprintf("  %s %s %s\n", dim("│"), noteColor("note:"), n))
	}

	return out.String()
}

func (r *Reporter) levelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
