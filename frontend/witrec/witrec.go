// Package witrec turns WIT record definitions into layout declarations.
//
// Every field of a record is declared at its canonical ABI offset and the
// struct at its canonical size, so the emitted Go struct can be shared with
// a component's linear memory without copying.
package witrec

import (
	"fmt"
	"io"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/layout"
)

// LoadJSON decodes a resolved WIT package set as produced by
// `wasm-tools component wit --json`.
func LoadJSON(r io.Reader) (*wit.Resolve, error) {
	res, err := wit.DecodeJSON(r)
	if err != nil {
		return nil, errors.ParseFailed("wit json", err)
	}
	return res, nil
}

// Records returns the named record definitions of res in declaration order.
func Records(res *wit.Resolve) []*wit.TypeDef {
	var out []*wit.TypeDef
	for _, td := range res.TypeDefs {
		if _, ok := td.Kind.(*wit.Record); ok && td.Name != nil {
			out = append(out, td)
		}
	}
	return out
}

// Inputs builds the declarations of every named record of res.
func Inputs(res *wit.Resolve) ([]layout.Input, error) {
	c := NewCalculator()
	var out []layout.Input
	for _, td := range Records(res) {
		in, err := c.Input(td)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// Input builds the declaration of one named record.
func (c *Calculator) Input(td *wit.TypeDef) (layout.Input, error) {
	rec, ok := td.Kind.(*wit.Record)
	if !ok {
		return layout.Input{}, errors.Unsupported(errors.PhaseParse, "", "WIT type definition is not a record")
	}
	if td.Name == nil {
		return layout.Input{}, errors.Unsupported(errors.PhaseParse, "", "anonymous WIT record")
	}

	witName := *td.Name
	info := c.Calculate(td)
	in := layout.Input{
		Struct: layout.Struct{
			Name: GoName(witName),
			Pos:  "wit:" + witName,
		},
		Size: &layout.Literal{Text: fmt.Sprintf("%#x", info.Size), Pos: "wit:" + witName},
	}

	for i, f := range rec.Fields {
		pos := "wit:" + witName + "." + f.Name
		in.Fields = append(in.Fields, layout.FieldDecl{
			Name:    GoName(f.Name),
			Pos:     pos,
			Type:    c.GoType(f.Type),
			Offsets: []layout.Literal{{Text: fmt.Sprintf("%#x", info.Offsets[i]), Pos: pos}},
			Syntax:  layout.Syntax{Tag: fmt.Sprintf("wit:%q", f.Name)},
		})
	}
	return in, nil
}

// GoType maps a WIT type to the Go type stored at its canonical position.
// Named records map to their generated struct, with a size only the
// compiler knows. Other compound types become opaque byte arrays of their
// canonical size.
func (c *Calculator) GoType(t wit.Type) layout.Type {
	switch typ := t.(type) {
	case wit.Bool:
		return layout.KnownType("bool", 1)
	case wit.U8:
		return layout.KnownType("uint8", 1)
	case wit.S8:
		return layout.KnownType("int8", 1)
	case wit.U16:
		return layout.KnownType("uint16", 2)
	case wit.S16:
		return layout.KnownType("int16", 2)
	case wit.U32:
		return layout.KnownType("uint32", 4)
	case wit.S32:
		return layout.KnownType("int32", 4)
	case wit.U64:
		return layout.KnownType("uint64", 8)
	case wit.S64:
		return layout.KnownType("int64", 8)
	case wit.F32:
		return layout.KnownType("float32", 4)
	case wit.F64:
		return layout.KnownType("float64", 8)
	case wit.Char:
		return layout.KnownType("rune", 4)
	case wit.String:
		return layout.KnownType("[2]uint32", 8)
	case *wit.TypeDef:
		switch kind := typ.Kind.(type) {
		case *wit.Record:
			if typ.Name != nil {
				return layout.DeferredType(GoName(*typ.Name))
			}
		case *wit.List:
			return layout.KnownType("[2]uint32", 8)
		case *wit.Own, *wit.Borrow:
			return layout.KnownType("uint32", 4)
		case wit.Type:
			return c.GoType(kind)
		}
	}
	info := c.Calculate(t)
	return layout.KnownType(fmt.Sprintf("[%d]byte", info.Size), uint64(info.Size))
}

// GoName converts a kebab-case WIT identifier to an exported Go name.
func GoName(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(s, "%"), "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
