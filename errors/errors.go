package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the launch sequence the error occurred
type Phase string

const (
	PhaseLoad      Phase = "load"      // shared library loading
	PhaseBind      Phase = "bind"      // symbol resolution
	PhaseConfig    Phase = "config"    // interpreter configuration
	PhaseStart     Phase = "start"     // interpreter start-up
	PhaseBootstrap Phase = "bootstrap" // embedded module import
	PhaseRun       Phase = "run"       // script execution
	PhaseArchive   Phase = "archive"   // PKG/CArchive access
	PhaseSplash    Phase = "splash"    // splash screen
	PhaseFinalize  Phase = "finalize"  // interpreter teardown
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation         Kind = "allocation"
	KindLoadFailure        Kind = "load_failure"
	KindSymbolNotFound     Kind = "symbol_not_found"
	KindUnsupportedVersion Kind = "unsupported_version"
	KindConfiguration      Kind = "configuration"
	KindRuntimeStart       Kind = "runtime_start"
	KindBootstrap          Kind = "bootstrap"
	KindInvalidData        Kind = "invalid_data"
	KindNotFound           Kind = "not_found"
	KindNotInitialized     Kind = "not_initialized"
)

// Error is the structured error type used throughout the launcher
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Symbol  string // offending symbol, for symbol_not_found
	Field   string // offending configuration field
	Module  string // offending bootstrap module / archive entry
	Version int    // offending version tag, for unsupported_version
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	switch {
	case e.Symbol != "":
		b.WriteString(": symbol ")
		b.WriteString(e.Symbol)
	case e.Field != "":
		b.WriteString(": field ")
		b.WriteString(e.Field)
	case e.Module != "":
		b.WriteString(": module ")
		b.WriteString(e.Module)
	case e.Version != 0:
		fmt.Fprintf(&b, ": version %d", e.Version)
	}

	if e.Detail != "" {
		b.WriteString(" - ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Convenience constructors for the launcher's failure modes

// Allocation creates an allocation failure error
func Allocation(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("could not allocate %s", what),
	}
}

// LoadFailure creates a shared library load error carrying the
// platform diagnostic
func LoadFailure(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoadFailure,
		Detail: fmt.Sprintf("load shared library %q", path),
		Cause:  cause,
	}
}

// SymbolNotFound creates an error naming the unresolved symbol
func SymbolNotFound(symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindSymbolNotFound,
		Symbol: symbol,
		Cause:  cause,
	}
}

// UnsupportedVersion creates an error for a version tag with no
// registered configuration layout
func UnsupportedVersion(version int) *Error {
	return &Error{
		Phase:   PhaseConfig,
		Kind:    KindUnsupportedVersion,
		Version: version,
		Detail:  "no configuration layout registered",
	}
}

// Configuration creates an error naming the configuration field the
// runtime rejected
func Configuration(field, detail string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindConfiguration,
		Field:  field,
		Detail: detail,
	}
}

// RuntimeStart creates an error for a failed interpreter start-up
func RuntimeStart(detail string) *Error {
	return &Error{
		Phase:  PhaseStart,
		Kind:   KindRuntimeStart,
		Detail: detail,
	}
}

// Bootstrap creates an error naming the bootstrap module that failed
func Bootstrap(module, detail string) *Error {
	return &Error{
		Phase:  PhaseBootstrap,
		Kind:   KindBootstrap,
		Module: module,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Wrap wraps an existing error with phase and kind context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
