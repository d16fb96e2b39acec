package layout

import (
	"fmt"
	"math/bits"
	"strings"
)

// Gap is the padding in front of a field, or trailing the struct.
//
// A concrete gap is Relative bytes long. A symbolic gap is
// Relative - size(Minus), where the subtraction is evaluated by the host.
type Gap struct {
	Minus    Type
	Relative uint64
	Symbolic bool
}

// ConcreteGap returns a gap of exactly n bytes.
func ConcreteGap(n uint64) Gap {
	return Gap{Relative: n}
}

// SymbolicGap returns a gap of relative - size(minus).
func SymbolicGap(relative uint64, minus Type) Gap {
	return Gap{Relative: relative, Minus: minus, Symbolic: true}
}

// Len returns the gap length when it is statically known.
// A symbolic gap over a Known size that would underflow reports false.
func (g Gap) Len() (uint64, bool) {
	if !g.Symbolic {
		return g.Relative, true
	}
	n, ok := g.Minus.Size.Bytes()
	if !ok || n > g.Relative {
		return 0, false
	}
	return g.Relative - n, true
}

func (g Gap) String() string {
	if !g.Symbolic {
		return fmt.Sprintf("%#x", g.Relative)
	}
	return fmt.Sprintf("%#x - %s", g.Relative, g.Minus.Size)
}

// Field is a resolved field: the declaration plus its parsed offset.
type Field struct {
	Name   string
	Pos    string
	Type   Type
	Syntax Syntax
	Offset uint64
	Index  int
}

func (f Field) clone() Field {
	f.Syntax = f.Syntax.clone()
	return f
}

// Entry pairs a field with the gap that precedes it.
type Entry struct {
	Gap   Gap
	Field Field
}

// SegmentKind distinguishes padding from fields in a flattened plan.
type SegmentKind uint8

const (
	SegmentGap SegmentKind = iota
	SegmentField
)

func (k SegmentKind) String() string {
	if k == SegmentField {
		return "field"
	}
	return "gap"
}

// Segment is one element of the ordered gap/field sequence.
// Field is set for SegmentField, Gap for SegmentGap.
type Segment struct {
	Gap      Gap
	Field    Field
	Kind     SegmentKind
	Trailing bool
}

// Plan is the resolved layout of one struct. It is immutable: accessors
// return copies.
type Plan struct {
	st       Struct
	entries  []Entry
	trailing *Gap
	desired  *uint64
}

// Struct returns the declaration metadata.
func (p *Plan) Struct() Struct {
	s := p.st
	s.TypeParams = append([]TypeParam(nil), p.st.TypeParams...)
	s.Directives = append([]Directive(nil), p.st.Directives...)
	return s
}

// Name returns the struct name.
func (p *Plan) Name() string { return p.st.Name }

// Len returns the number of fields.
func (p *Plan) Len() int { return len(p.entries) }

// Entries returns the (gap, field) pairs in declaration order.
func (p *Plan) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	for i, e := range p.entries {
		out[i] = Entry{Gap: e.Gap, Field: e.Field.clone()}
	}
	return out
}

// Trailing returns the trailing gap, if a desired size was declared.
func (p *Plan) Trailing() (Gap, bool) {
	if p.trailing == nil {
		return Gap{}, false
	}
	return *p.trailing, true
}

// DesiredSize returns the declared total size, if any.
func (p *Plan) DesiredSize() (uint64, bool) {
	if p.desired == nil {
		return 0, false
	}
	return *p.desired, true
}

// Size returns the total struct size when it is statically known: the
// desired size when declared, otherwise the end of the last field.
func (p *Plan) Size() (uint64, bool) {
	if p.desired != nil {
		return *p.desired, true
	}
	if len(p.entries) == 0 {
		return 0, true
	}
	last := p.entries[len(p.entries)-1].Field
	n, ok := last.Type.Size.Bytes()
	if !ok {
		return 0, false
	}
	end, carry := bits.Add64(last.Offset, n, 0)
	if carry != 0 {
		return 0, false
	}
	return end, true
}

// Segments flattens the plan to [gap0, field0, ..., gapN, fieldN, trailing?].
func (p *Plan) Segments() []Segment {
	out := make([]Segment, 0, 2*len(p.entries)+1)
	for _, e := range p.entries {
		out = append(out,
			Segment{Kind: SegmentGap, Gap: e.Gap},
			Segment{Kind: SegmentField, Field: e.Field.clone()},
		)
	}
	if p.trailing != nil {
		out = append(out, Segment{Kind: SegmentGap, Gap: *p.trailing, Trailing: true})
	}
	return out
}

func (p *Plan) String() string {
	var b strings.Builder
	b.WriteString(p.st.Name)
	b.WriteString(" {")
	for i, s := range p.Segments() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte(' ')
		if s.Kind == SegmentField {
			fmt.Fprintf(&b, "%s@%#x", s.Field.Name, s.Field.Offset)
		} else {
			fmt.Fprintf(&b, "pad[%s]", s.Gap)
		}
	}
	b.WriteString(" }")
	return b.String()
}
