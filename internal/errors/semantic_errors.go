package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError reports a rejected AFL_* environment setting or an
// internally inconsistent Config (§ environment variables and map sizing).
type ConfigError struct {
	Code    string
	Field   string
	Value   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s=%q: %s", e.Code, e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// NewConfigError wraps a ConfigError with a stack trace for error.Is/As
// callers and %+v-aware loggers, following this codebase's convention of
// wrapping all constructed errors with github.com/pkg/errors.
func NewConfigError(code, field, value, message string) error {
	return errors.WithStack(&ConfigError{Code: code, Field: field, Value: value, Message: message})
}

// PassError reports a precondition violated by a caller of one of the
// transformation passes (switchsplit, instrument) — as opposed to
// ir.IRStructuralError, which reports a module that breaks an IR
// invariant.
type PassError struct {
	Code     string
	Function string
	Block    string
	Detail   string
}

func (e *PassError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("%s: %s:%s: %s", e.Code, e.Function, e.Block, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Function, e.Detail)
}

// DiagnosticBuilder provides a fluent interface for assembling a
// Diagnostic, mirroring the builder style the rest of this codebase uses
// for multi-field structs.
type DiagnosticBuilder struct {
	d Diagnostic
}

func NewDiagnostic(level ErrorLevel, code, message string) *DiagnosticBuilder {
	return &DiagnosticBuilder{d: Diagnostic{Level: level, Code: code, Message: message}}
}

func (b *DiagnosticBuilder) At(function, block string) *DiagnosticBuilder {
	b.d.Location = Location{Function: function, Block: block}
	return b
}

func (b *DiagnosticBuilder) WithNote(note string) *DiagnosticBuilder {
	b.d.Notes = append(b.d.Notes, note)
	return b
}

func (b *DiagnosticBuilder) Build() Diagnostic {
	return b.d
}
