package layout

import "strconv"

// SizeKind tells whether a type's byte size is known to the resolver.
type SizeKind uint8

const (
	// SizeKnown is a concrete byte count.
	SizeKnown SizeKind = iota
	// SizeDeferred is a symbolic "size of T" left to the host compiler.
	SizeDeferred
)

func (k SizeKind) String() string {
	if k == SizeDeferred {
		return "deferred"
	}
	return "known"
}

// TypeSize is the byte size of a field's type: either Known or Deferred.
type TypeSize struct {
	expr  string
	bytes uint64
	kind  SizeKind
}

// Known returns a concrete size of n bytes.
func Known(n uint64) TypeSize {
	return TypeSize{kind: SizeKnown, bytes: n}
}

// Deferred returns a symbolic size of the host type expression expr.
func Deferred(expr string) TypeSize {
	return TypeSize{kind: SizeDeferred, expr: expr}
}

// Kind reports whether the size is Known or Deferred.
func (s TypeSize) Kind() SizeKind { return s.kind }

// Bytes returns the concrete size and true for Known sizes.
func (s TypeSize) Bytes() (uint64, bool) {
	if s.kind != SizeKnown {
		return 0, false
	}
	return s.bytes, true
}

// Expr returns the type expression of a Deferred size.
func (s TypeSize) Expr() string { return s.expr }

func (s TypeSize) String() string {
	if s.kind == SizeKnown {
		return strconv.FormatUint(s.bytes, 10)
	}
	return "sizeof(" + s.expr + ")"
}

// Type is a field's type as the front end saw it.
// Expr is the host type expression, kept verbatim for emission.
type Type struct {
	Expr string
	Size TypeSize
}

// KnownType is shorthand for a statically sized type.
func KnownType(expr string, n uint64) Type {
	return Type{Expr: expr, Size: Known(n)}
}

// DeferredType is shorthand for a type whose size only the host knows.
func DeferredType(expr string) Type {
	return Type{Expr: expr, Size: Deferred(expr)}
}
