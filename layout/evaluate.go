package layout

import (
	"math/bits"

	"github.com/wippyai/memlayout/errors"
)

// Sizer resolves Deferred sizes, standing in for the host compiler's
// constant evaluation.
type Sizer interface {
	SizeOf(expr string) (uint64, bool)
}

// SizeTable is a map-backed Sizer keyed by type expression.
type SizeTable map[string]uint64

// SizeOf implements Sizer.
func (t SizeTable) SizeOf(expr string) (uint64, bool) {
	n, ok := t[expr]
	return n, ok
}

// Placement is a field at its evaluated position.
type Placement struct {
	Name    string
	Type    string
	Offset  uint64
	Size    uint64
	Padding uint64
}

// End returns the first byte after the field.
func (p Placement) End() uint64 { return p.Offset + p.Size }

// Layout is a plan with every gap evaluated to a byte count.
type Layout struct {
	Struct   string
	Fields   []Placement
	Trailing uint64
	Size     uint64
}

// Field looks up a placement by name.
func (l *Layout) Field(name string) (Placement, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Placement{}, false
}

// Evaluate computes concrete positions for p, resolving Deferred sizes
// through s. s may be nil when every size is Known.
func Evaluate(p *Plan, s Sizer) (*Layout, error) {
	out := &Layout{
		Struct: p.st.Name,
		Fields: make([]Placement, 0, len(p.entries)),
	}

	var cursor uint64
	for _, e := range p.entries {
		path := []string{p.st.Name, e.Field.Name}

		pad, err := evalGap(e.Gap, s, path)
		if err != nil {
			return nil, err
		}
		size, err := sizeOf(e.Field.Type, s, path)
		if err != nil {
			return nil, err
		}

		offset, err := advance(cursor, pad, path)
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, Placement{
			Name:    e.Field.Name,
			Type:    e.Field.Type.Expr,
			Offset:  offset,
			Size:    size,
			Padding: pad,
		})
		if cursor, err = advance(offset, size, path); err != nil {
			return nil, err
		}
	}

	if p.trailing != nil {
		path := []string{p.st.Name}
		pad, err := evalGap(*p.trailing, s, path)
		if err != nil {
			return nil, err
		}
		out.Trailing = pad
		if cursor, err = advance(cursor, pad, path); err != nil {
			return nil, err
		}
	}

	out.Size = cursor
	return out, nil
}

// advance returns cursor+n, failing when the sum leaves the 64-bit range.
func advance(cursor, n uint64, path []string) (uint64, error) {
	sum, carry := bits.Add64(cursor, n, 0)
	if carry != 0 {
		return 0, errors.New(errors.PhaseEvaluate, errors.KindInvalidInput).
			Path(path...).
			Detail("layout extends past the 64-bit address space at %#x + %d", cursor, n).
			Build()
	}
	return sum, nil
}

func evalGap(g Gap, s Sizer, path []string) (uint64, error) {
	if !g.Symbolic {
		return g.Relative, nil
	}
	n, err := sizeOf(g.Minus, s, path)
	if err != nil {
		return 0, err
	}
	if n > g.Relative {
		return 0, errors.DeferredUnderflow(path, g.Minus.Expr, g.Relative, n)
	}
	return g.Relative - n, nil
}

func sizeOf(t Type, s Sizer, path []string) (uint64, error) {
	if n, ok := t.Size.Bytes(); ok {
		return n, nil
	}
	if s != nil {
		if n, ok := s.SizeOf(t.Size.Expr()); ok {
			return n, nil
		}
	}
	return 0, errors.UnresolvedSize(path, t.Size.Expr())
}
