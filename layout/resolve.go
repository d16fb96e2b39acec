package layout

import (
	"math/bits"

	"go.uber.org/zap"

	"github.com/wippyai/memlayout/errors"
)

// Ordering selects how equal consecutive offsets are treated.
// Lower offsets are rejected under every policy.
type Ordering uint8

const (
	// OrderZeroSizeAware accepts an offset equal to its predecessor's only
	// when the predecessor may be zero-sized (Known 0 or Deferred).
	OrderZeroSizeAware Ordering = iota
	// OrderStrict requires strictly increasing offsets.
	OrderStrict
	// OrderNonDecreasing accepts equal offsets unconditionally.
	OrderNonDecreasing
)

func (o Ordering) String() string {
	switch o {
	case OrderStrict:
		return "strict"
	case OrderNonDecreasing:
		return "non-decreasing"
	default:
		return "zero-size-aware"
	}
}

// Options configures resolution.
type Options struct {
	// Workers bounds ResolveAll's parallelism. 0 means GOMAXPROCS.
	Workers int
	// Ordering is the equal-offset policy.
	Ordering Ordering
	// Fold subtracts Known sizes at resolution time so statically
	// negative gaps are rejected here instead of by the host.
	Fold bool
}

// DefaultOptions returns default resolver configuration.
func DefaultOptions() Options {
	return Options{
		Ordering: OrderZeroSizeAware,
		Fold:     true,
	}
}

// acc is the fold accumulator threaded through the field sequence.
type acc struct {
	prev    *Field
	entries []Entry
	offset  uint64
}

type resolver struct {
	in   *Input
	opts Options
}

// Resolve computes the layout plan of one struct declaration.
// It is pure: on error no partial plan is returned.
func Resolve(in Input, opts Options) (*Plan, error) {
	if err := ValidateDirectives(in.Struct); err != nil {
		return nil, err
	}
	if in.Struct.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseResolve, in.Struct.Pos, "struct has no name")
	}

	r := &resolver{in: &in, opts: opts}

	st := acc{entries: make([]Entry, 0, len(in.Fields))}
	seen := make(map[string]struct{}, len(in.Fields))
	for i := range in.Fields {
		fd := &in.Fields[i]
		if fd.Name == "" {
			return nil, errors.InvalidInput(errors.PhaseResolve, fd.Pos, "field has no name")
		}
		if _, dup := seen[fd.Name]; dup && fd.Name != "_" {
			return nil, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
				Pos(fd.Pos).
				Path(in.Struct.Name, fd.Name).
				Detail("duplicate field name").
				Build()
		}
		seen[fd.Name] = struct{}{}

		next, err := r.step(st, i, fd)
		if err != nil {
			return nil, err
		}
		st = next
	}

	p := &Plan{st: in.Struct, entries: st.entries}
	p.st.TypeParams = append([]TypeParam(nil), in.Struct.TypeParams...)
	p.st.Directives = append([]Directive(nil), in.Struct.Directives...)

	if in.Size != nil {
		size, trailing, err := r.trailing(st)
		if err != nil {
			return nil, err
		}
		p.desired = &size
		p.trailing = &trailing
	}

	Logger().Debug("resolved layout",
		zap.String("struct", in.Struct.Name),
		zap.Int("fields", len(p.entries)),
		zap.Bool("sized", p.desired != nil))

	return p, nil
}

// step folds one field into the accumulator.
func (r *resolver) step(st acc, index int, fd *FieldDecl) (acc, error) {
	path := []string{r.in.Struct.Name, fd.Name}

	switch len(fd.Offsets) {
	case 0:
		return st, errors.MissingOffset(fd.Pos, path)
	case 1:
	default:
		return st, errors.DuplicateOffset(fd.Offsets[1].Pos, path, len(fd.Offsets))
	}
	lit := fd.Offsets[0]

	offset, err := ParseOffset(lit.Text)
	if err != nil {
		return st, errors.MalformedOffset(lit.Pos, path, lit.Text, err)
	}

	if n, ok := fd.Type.Size.Bytes(); ok {
		if _, carry := bits.Add64(offset, n, 0); carry != 0 {
			return st, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
				Pos(lit.Pos).
				Path(path...).
				Type(fd.Type.Expr).
				Detail("field at %#x of %d bytes ends past the 64-bit address space", offset, n).
				Build()
		}
	}

	field := Field{
		Index:  index,
		Name:   fd.Name,
		Pos:    fd.Pos,
		Type:   fd.Type,
		Syntax: fd.Syntax.clone(),
		Offset: offset,
	}

	var gap Gap
	if st.prev == nil {
		gap = ConcreteGap(offset)
	} else {
		if err := r.checkOrder(st, offset, lit.Pos, path); err != nil {
			return st, err
		}
		gap, err = r.gapAfter(*st.prev, offset-st.offset, lit.Pos, path)
		if err != nil {
			return st, err
		}
	}

	return acc{
		prev:    &field,
		entries: append(st.entries, Entry{Gap: gap, Field: field}),
		offset:  offset,
	}, nil
}

func (r *resolver) checkOrder(st acc, offset uint64, pos string, path []string) error {
	prev := st.prev
	if offset < st.offset {
		return errors.OffsetOrdering(pos, path, offset, prev.Name, st.offset, r.opts.Ordering == OrderStrict)
	}
	if offset > st.offset {
		return nil
	}

	switch r.opts.Ordering {
	case OrderStrict:
		return errors.OffsetOrdering(pos, path, offset, prev.Name, st.offset, true)
	case OrderZeroSizeAware:
		if n, ok := prev.Type.Size.Bytes(); ok && n > 0 {
			return errors.OffsetOrdering(pos, path, offset, prev.Name, st.offset, true)
		}
	}
	return nil
}

// gapAfter builds relative - size(prev).
func (r *resolver) gapAfter(prev Field, relative uint64, pos string, path []string) (Gap, error) {
	if n, ok := prev.Type.Size.Bytes(); ok && r.opts.Fold {
		if n > relative {
			return Gap{}, errors.FieldOverlap(pos, path, prev.Name, n, relative)
		}
		return ConcreteGap(relative - n), nil
	}
	return SymbolicGap(relative, prev.Type), nil
}

// trailing computes the gap between the last field and the desired size.
func (r *resolver) trailing(st acc) (uint64, Gap, error) {
	lit := r.in.Size
	path := []string{r.in.Struct.Name}

	size, err := ParseOffset(lit.Text)
	if err != nil {
		return 0, Gap{}, errors.MalformedSize(lit.Pos, path, lit.Text, err)
	}
	if st.prev == nil {
		return size, ConcreteGap(size), nil
	}

	last := *st.prev
	if size < last.Offset {
		return 0, Gap{}, errors.SizeTooSmall(lit.Pos, path, size, last.Offset)
	}
	required := size - last.Offset

	if n, ok := last.Type.Size.Bytes(); ok && r.opts.Fold {
		if n > required {
			return 0, Gap{}, errors.SizeTooSmall(lit.Pos, path, size, last.Offset+n)
		}
		return size, ConcreteGap(required - n), nil
	}
	return size, SymbolicGap(required, last.Type), nil
}
