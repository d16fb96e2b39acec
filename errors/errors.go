package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse    Phase = "parse"    // front end: reading declarations
	PhaseValidate Phase = "validate" // pre-resolution guards
	PhaseResolve  Phase = "resolve"  // layout resolution
	PhaseEvaluate Phase = "evaluate" // deferred size evaluation
	PhaseEmit     Phase = "emit"     // code and report emission
	PhaseBind     Phase = "bind"     // memory binding
)

// Kind categorizes the error
type Kind string

const (
	KindMissingOffset        Kind = "missing_offset"
	KindMalformedOffset      Kind = "malformed_offset"
	KindMalformedSize        Kind = "malformed_size"
	KindDuplicateOffset      Kind = "duplicate_offset"
	KindOffsetOrdering       Kind = "offset_ordering"
	KindFieldOverlap         Kind = "field_overlap"
	KindSizeTooSmall         Kind = "size_too_small"
	KindConflictingDirective Kind = "conflicting_directive"
	KindDeferredUnderflow    Kind = "deferred_underflow"
	KindUnresolvedSize       Kind = "unresolved_size"
	KindUnsupported          Kind = "unsupported"
	KindInvalidInput         Kind = "invalid_input"
	KindNotFound             Kind = "not_found"
	KindOutOfBounds          Kind = "out_of_bounds"
	KindTypeMismatch         Kind = "type_mismatch"
)

// Error is the structured error type used throughout memlayout.
// Pos attributes the error to the offending syntactic element
// ("file:line:col" or "line:col"); Path names the struct and field.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Pos    string
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Pos != "" {
		b.WriteString(e.Pos)
		b.WriteString(": ")
	}

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// Path sets the struct/field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Pos sets the source position
func (b *Builder) Pos(pos string) *Builder {
	b.err.Pos = pos
	return b
}

// Type sets the type expression involved
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
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

// Convenience constructors for the resolver's failure modes

// MissingOffset reports a field without an offset declaration
func MissingOffset(pos string, path []string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMissingOffset,
		Pos:    pos,
		Path:   path,
		Detail: "field is missing an offset",
	}
}

// MalformedOffset reports an offset literal that is not a non-negative integer
func MalformedOffset(pos string, path []string, literal string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMalformedOffset,
		Pos:    pos,
		Path:   path,
		Value:  literal,
		Detail: fmt.Sprintf("field offset %q must be a non-negative integer literal", literal),
		Cause:  cause,
	}
}

// MalformedSize reports a struct size literal that is not a non-negative integer
func MalformedSize(pos string, path []string, literal string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMalformedSize,
		Pos:    pos,
		Path:   path,
		Value:  literal,
		Detail: fmt.Sprintf("struct size %q must be a non-negative integer literal", literal),
		Cause:  cause,
	}
}

// DuplicateOffset reports a field carrying more than one offset declaration
func DuplicateOffset(pos string, path []string, count int) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindDuplicateOffset,
		Pos:    pos,
		Path:   path,
		Value:  count,
		Detail: fmt.Sprintf("field declares %d offsets, exactly one is allowed", count),
	}
}

// OffsetOrdering reports a field placed before (or on top of) its predecessor
func OffsetOrdering(pos string, path []string, offset uint64, prev string, prevOffset uint64, strict bool) *Error {
	rel := "lower than"
	if strict {
		rel = "lower than or equal to"
	}
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindOffsetOrdering,
		Pos:    pos,
		Path:   path,
		Value:  offset,
		Detail: fmt.Sprintf("offset %#x can't be %s its predecessor %s at %#x", offset, rel, prev, prevOffset),
	}
}

// FieldOverlap reports a field whose offset leaves no room for its predecessor
func FieldOverlap(pos string, path []string, prev string, prevSize, room uint64) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindFieldOverlap,
		Pos:    pos,
		Path:   path,
		Value:  room,
		Detail: fmt.Sprintf("predecessor %s needs %d bytes but only %d are available", prev, prevSize, room),
	}
}

// SizeTooSmall reports a desired struct size below the end of its last field
func SizeTooSmall(pos string, path []string, size, end uint64) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindSizeTooSmall,
		Pos:    pos,
		Path:   path,
		Value:  size,
		Detail: fmt.Sprintf("desired struct size %#x is lower than the end of the last field (%#x)", size, end),
	}
}

// ConflictingDirective reports a manual layout directive on a resolved struct
func ConflictingDirective(pos string, path []string, directive string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindConflictingDirective,
		Pos:    pos,
		Path:   path,
		Value:  directive,
		Detail: fmt.Sprintf("adding %q manually is not supported", directive),
	}
}

// DeferredUnderflow reports a deferred gap that evaluated to a negative length
func DeferredUnderflow(path []string, typ string, relative, size uint64) *Error {
	return &Error{
		Phase:  PhaseEvaluate,
		Kind:   KindDeferredUnderflow,
		Path:   path,
		Type:   typ,
		Value:  size,
		Detail: fmt.Sprintf("padding %#x - %d is negative", relative, size),
	}
}

// UnresolvedSize reports a deferred size the evaluator cannot resolve
func UnresolvedSize(path []string, typ string) *Error {
	return &Error{
		Phase:  PhaseEvaluate,
		Kind:   KindUnresolvedSize,
		Path:   path,
		Type:   typ,
		Detail: "size of type is unknown",
	}
}

// Unsupported creates an unsupported construct error
func Unsupported(phase Phase, pos string, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Pos:    pos,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, pos string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Pos:    pos,
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

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, path []string, offset uint64, length uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Value:  offset,
		Detail: fmt.Sprintf("access at %#x (length %d) out of bounds", offset, length),
	}
}

// TypeMismatch creates a size/type mismatch error for typed memory access
func TypeMismatch(phase Phase, path []string, typ string, want, got uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Type:   typ,
		Detail: fmt.Sprintf("field is %d bytes, accessed as %d", got, want),
	}
}

// ParseFailed wraps a front end parse failure
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("parse %s", what),
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

// Diagnostic is one failed declaration in a batch
type Diagnostic struct {
	Struct string
	Err    error
}

// Diagnostics is returned when one or more declarations of a batch fail.
// Entries keep the batch's input order.
type Diagnostics struct {
	Items []Diagnostic
}

// Add appends a failure for the named declaration
func (d *Diagnostics) Add(name string, err error) {
	d.Items = append(d.Items, Diagnostic{Struct: name, Err: err})
}

// Err returns d when it holds at least one failure, nil otherwise
func (d *Diagnostics) Err() error {
	if d == nil || len(d.Items) == 0 {
		return nil
	}
	return d
}

func (d *Diagnostics) Error() string {
	if len(d.Items) == 0 {
		return "[resolve] no diagnostics"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d declaration(s) failed:\n", len(d.Items)))

	for _, it := range d.Items {
		b.WriteString("\n  ")
		b.WriteString(it.Struct)
		b.WriteString(":\n    - ")
		b.WriteString(it.Err.Error())
		b.WriteByte('\n')
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Unwrap exposes every item for errors.Is/As
func (d *Diagnostics) Unwrap() []error {
	out := make([]error, 0, len(d.Items))
	for _, it := range d.Items {
		out = append(out, it.Err)
	}
	return out
}
