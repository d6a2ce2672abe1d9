package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in a surface's life the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // engine module loading
	PhaseCreate   Phase = "create"   // surface factories
	PhaseCall     Phase = "call"     // operations on a live surface
	PhaseRelease  Phase = "release"  // destroy / engine close
	PhaseHost     Phase = "host"     // host imports called by the engine
	PhaseValidate Phase = "validate" // argument validation
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidData   Kind = "invalid_data"
	KindNotFound      Kind = "not_found"
	KindTypeMismatch  Kind = "type_mismatch"
	KindInstantiation Kind = "instantiation"
	KindNullHandle    Kind = "null_handle"
	KindDestroyed     Kind = "destroyed"
	KindClosed        Kind = "closed"
	KindTrap          Kind = "trap"
	KindUnsupported   Kind = "unsupported"
	KindAllocation    Kind = "allocation"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Detail != "" {
		b.WriteString(": ")
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

// Is reports whether target matches this error.
// An empty Phase in target matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase != "" && t.Phase != e.Phase {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidDimensions reports a width or height that is not positive or
// exceeds the largest supported target
func InvalidDimensions(op string, width, height int32) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidInput,
		Op:     op,
		Detail: fmt.Sprintf("invalid dimensions %dx%d", width, height),
		Value:  [2]int32{width, height},
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

// SignatureMismatch reports an engine export with an unexpected signature
func SignatureMismatch(name, want, got string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindTypeMismatch,
		Detail: fmt.Sprintf("export %q has signature %s, want %s", name, got, want),
	}
}

// NullHandle reports that the engine refused to create a native instance
func NullHandle(op string) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindNullHandle,
		Op:     op,
		Detail: "engine returned a null instance",
	}
}

// Destroyed reports use of a surface after it was destroyed
func Destroyed(op string, handle uint32) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindDestroyed,
		Op:     op,
		Detail: fmt.Sprintf("surface %d already destroyed", handle),
		Value:  handle,
	}
}

// Closed reports use of an engine after Close
func Closed(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Op:     op,
		Detail: "engine closed",
	}
}

// UnknownHandle reports a handle the engine does not own
func UnknownHandle(op string, handle uint32) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNotFound,
		Op:     op,
		Detail: fmt.Sprintf("unknown native instance %d", handle),
		Value:  handle,
	}
}

// Trap wraps a failure raised inside the engine during a call
func Trap(phase Phase, op string, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindTrap,
		Op:    op,
		Cause: cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate engine module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Config creates a configuration error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
