// Package gotype sizes Go type expressions.
//
// Size reports the platform-independent byte size of a type expression when
// the expression is built only from fixed-size predeclared types, arrays and
// structs of them. Everything else (int, uintptr, pointers, strings, named
// types, type parameters) is left to the Go compiler.
package gotype

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"math/bits"
	"strconv"

	"github.com/wippyai/memlayout/layout"
)

var fixed = map[string]uint64{
	"bool":       1,
	"int8":       1,
	"uint8":      1,
	"byte":       1,
	"int16":      2,
	"uint16":     2,
	"int32":      4,
	"uint32":     4,
	"rune":       4,
	"float32":    4,
	"int64":      8,
	"uint64":     8,
	"float64":    8,
	"complex64":  8,
	"complex128": 16,
}

// Size returns the fixed size of expr, if it has one on every platform.
func Size(expr ast.Expr) (uint64, bool) {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return Size(e.X)
	case *ast.Ident:
		n, ok := fixed[e.Name]
		return n, ok
	case *ast.ArrayType:
		if e.Len == nil {
			return 0, false
		}
		length, ok := arrayLen(e.Len)
		if !ok {
			return 0, false
		}
		elem, ok := Size(e.Elt)
		if !ok {
			return 0, false
		}
		hi, total := bits.Mul64(length, elem)
		if hi != 0 {
			return 0, false
		}
		return total, true
	case *ast.StructType:
		// Only struct{} and structs of byte-aligned members are
		// padding free regardless of target.
		if e.Fields == nil || len(e.Fields.List) == 0 {
			return 0, true
		}
		var total uint64
		for _, f := range e.Fields.List {
			n, ok := Size(f.Type)
			if !ok || n == 0 || !byteAligned(f.Type) {
				return 0, false
			}
			count := uint64(len(f.Names))
			if count == 0 {
				count = 1
			}
			total += n * count
		}
		return total, true
	}
	return 0, false
}

func byteAligned(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return byteAligned(e.X)
	case *ast.Ident:
		return fixed[e.Name] == 1
	case *ast.ArrayType:
		return byteAligned(e.Elt)
	case *ast.StructType:
		return true
	}
	return false
}

func arrayLen(expr ast.Expr) (uint64, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.INT {
		return 0, false
	}
	n, err := strconv.ParseUint(lit.Value, 0, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Parse parses a type expression.
func Parse(src string) (ast.Expr, error) {
	return parser.ParseExpr(src)
}

// Type classifies src as a Known or Deferred layout.Type. Unparseable
// expressions are Deferred so the compiler reports them.
func Type(src string) layout.Type {
	expr, err := Parse(src)
	if err != nil {
		return layout.DeferredType(src)
	}
	if n, ok := Size(expr); ok {
		return layout.KnownType(src, n)
	}
	return layout.DeferredType(src)
}

// String renders expr as Go source.
func String(expr ast.Expr) string {
	return types.ExprString(expr)
}

// Mentions reports whether src refers to any of names as an identifier.
func Mentions(src string, names func(string) bool) bool {
	expr, err := Parse(src)
	if err != nil {
		return false
	}
	found := false
	ast.Inspect(expr, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && names(id.Name) {
			found = true
		}
		return !found
	})
	return found
}
