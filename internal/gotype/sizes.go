package gotype

import (
	"go/ast"
	"go/token"
	"go/types"
	"math"
)

// Platform is a layout.Sizer answering with the gc compiler's sizes for one
// GOARCH. It understands predeclared types and composites of them; named
// types from user packages stay unresolved.
type Platform struct {
	sizes types.Sizes
	arch  string
}

// NewPlatform returns the sizer for arch, or false for an unknown arch.
func NewPlatform(arch string) (*Platform, bool) {
	s := types.SizesFor("gc", arch)
	if s == nil {
		return nil, false
	}
	return &Platform{sizes: s, arch: arch}, true
}

// Arch returns the GOARCH the sizer models.
func (p *Platform) Arch() string { return p.arch }

// SizeOf implements layout.Sizer.
func (p *Platform) SizeOf(src string) (uint64, bool) {
	expr, err := Parse(src)
	if err != nil {
		return 0, false
	}
	t := typeOf(expr)
	if t == nil {
		return 0, false
	}
	n := p.sizes.Sizeof(t)
	if n < 0 {
		return 0, false
	}
	return uint64(n), true
}

// Alignof returns the gc alignment of src on this platform.
func (p *Platform) Alignof(src string) (uint64, bool) {
	expr, err := Parse(src)
	if err != nil {
		return 0, false
	}
	t := typeOf(expr)
	if t == nil {
		return 0, false
	}
	return uint64(p.sizes.Alignof(t)), true
}

// opaque stands in for element types whose identity does not change the
// size of the enclosing pointer-shaped type.
var opaque = types.Typ[types.Int]

func typeOf(expr ast.Expr) types.Type {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return typeOf(e.X)
	case *ast.Ident:
		obj := types.Universe.Lookup(e.Name)
		if tn, ok := obj.(*types.TypeName); ok {
			return tn.Type()
		}
		return nil
	case *ast.SelectorExpr:
		if pkg, ok := e.X.(*ast.Ident); ok && pkg.Name == "unsafe" && e.Sel.Name == "Pointer" {
			return types.Typ[types.UnsafePointer]
		}
		return nil
	case *ast.StarExpr:
		return types.NewPointer(opaque)
	case *ast.MapType:
		return types.NewMap(opaque, opaque)
	case *ast.ChanType:
		return types.NewChan(types.SendRecv, opaque)
	case *ast.FuncType:
		return types.NewSignatureType(nil, nil, nil, nil, nil, false)
	case *ast.InterfaceType:
		return types.NewInterfaceType(nil, nil)
	case *ast.ArrayType:
		if e.Len == nil {
			return types.NewSlice(opaque)
		}
		n, ok := arrayLen(e.Len)
		if !ok || n > math.MaxInt64 {
			return nil
		}
		elem := typeOf(e.Elt)
		if elem == nil {
			return nil
		}
		return types.NewArray(elem, int64(n))
	case *ast.StructType:
		var fields []*types.Var
		for _, f := range e.Fields.List {
			ft := typeOf(f.Type)
			if ft == nil {
				return nil
			}
			if len(f.Names) == 0 {
				fields = append(fields, types.NewField(token.NoPos, nil, "_", ft, false))
				continue
			}
			for _, name := range f.Names {
				fields = append(fields, types.NewField(token.NoPos, nil, name.Name, ft, false))
			}
		}
		return types.NewStruct(fields, nil)
	}
	return nil
}
