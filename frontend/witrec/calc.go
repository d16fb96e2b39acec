package witrec

import (
	"go.bytecodealliance.org/wit"
)

// Info is the canonical ABI size and alignment of a WIT type.
// Offsets holds record field offsets in declaration order.
type Info struct {
	Offsets []uint32
	Size    uint32
	Align   uint32
}

// Calculator computes canonical ABI layouts, caching type definitions.
type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record:
		info = c.calculateRecord(kind)
	case *wit.Variant:
		info = c.calculateVariant(kind)
	case *wit.Enum:
		size := discriminantSize(len(kind.Cases))
		info = Info{Size: size, Align: size}
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Option:
		inner := c.Calculate(kind.Type)
		info = c.tagged(inner.Size, inner.Align)
	case *wit.Result:
		info = c.calculateResult(kind)
	case *wit.Tuple:
		info = c.calculateTuple(kind)
	case *wit.Flags:
		info = calculateFlags(len(kind.Flags))
	case *wit.Own, *wit.Borrow:
		info = Info{Size: 4, Align: 4}
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

func (c *Calculator) calculateRecord(r *wit.Record) Info {
	if len(r.Fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	offsets := make([]uint32, 0, len(r.Fields))
	maxAlign := uint32(1)
	offset := uint32(0)

	for _, field := range r.Fields {
		fl := c.Calculate(field.Type)

		offset = alignTo(offset, fl.Align)
		offsets = append(offsets, offset)

		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}
		offset += fl.Size
	}

	return Info{
		Size:    alignTo(offset, maxAlign),
		Align:   maxAlign,
		Offsets: offsets,
	}
}

func (c *Calculator) calculateVariant(v *wit.Variant) Info {
	if len(v.Cases) == 0 {
		return Info{Size: 0, Align: 1}
	}

	discSize := discriminantSize(len(v.Cases))
	maxAlign := discSize
	maxSize := uint32(0)

	for _, cs := range v.Cases {
		if cs.Type == nil {
			continue
		}
		cl := c.Calculate(cs.Type)
		maxAlign = max(maxAlign, cl.Align)
		maxSize = max(maxSize, cl.Size)
	}

	payloadOffset := alignTo(discSize, maxAlign)
	return Info{
		Size:  alignTo(payloadOffset+maxSize, maxAlign),
		Align: maxAlign,
	}
}

func (c *Calculator) calculateResult(r *wit.Result) Info {
	var okSize, errSize uint32
	okAlign, errAlign := uint32(1), uint32(1)
	if r.OK != nil {
		l := c.Calculate(r.OK)
		okSize, okAlign = l.Size, l.Align
	}
	if r.Err != nil {
		l := c.Calculate(r.Err)
		errSize, errAlign = l.Size, l.Align
	}
	return c.tagged(max(okSize, errSize), max(okAlign, errAlign))
}

// tagged lays out a one-byte discriminant followed by a payload.
func (c *Calculator) tagged(size, align uint32) Info {
	align = max(align, 1)
	payloadOffset := alignTo(1, align)
	return Info{
		Size:  alignTo(payloadOffset+size, align),
		Align: align,
	}
}

func (c *Calculator) calculateTuple(t *wit.Tuple) Info {
	if len(t.Types) == 0 {
		return Info{Size: 0, Align: 1}
	}

	maxAlign := uint32(1)
	offset := uint32(0)
	for _, typ := range t.Types {
		el := c.Calculate(typ)
		offset = alignTo(offset, el.Align)
		maxAlign = max(maxAlign, el.Align)
		offset += el.Size
	}

	return Info{
		Size:  alignTo(offset, maxAlign),
		Align: maxAlign,
	}
}

func calculateFlags(n int) Info {
	switch {
	case n == 0:
		return Info{Size: 0, Align: 1}
	case n <= 8:
		return Info{Size: 1, Align: 1}
	case n <= 16:
		return Info{Size: 2, Align: 2}
	case n <= 32:
		return Info{Size: 4, Align: 4}
	}
	// more than 32 flags are stored as consecutive u32s
	return Info{Size: uint32((n+31)/32) * 4, Align: 4}
}

func alignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func discriminantSize(numCases int) uint32 {
	if numCases <= 256 {
		return 1
	} else if numCases <= 65536 {
		return 2
	}
	return 4
}
