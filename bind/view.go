package bind

import (
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/memlayout"
	"github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/layout"
)

// View is one instance of an evaluated layout at Base in Mem.
// Fixed-width accessors require the field to have exactly that width.
type View struct {
	Mem    memlayout.Memory
	Layout *layout.Layout
	Base   uint32
}

// Alloc reserves Layout.Size bytes with the given alignment and zeroes them.
func Alloc(mem memlayout.Memory, alloc memlayout.Allocator, l *layout.Layout, align uint32) (*View, error) {
	size, err := size32(l)
	if err != nil {
		return nil, err
	}
	ptr, err := alloc.Alloc(size, align)
	if err != nil {
		return nil, err
	}
	v := &View{Mem: mem, Base: ptr, Layout: l}
	if err := v.Zero(); err != nil {
		alloc.Free(ptr, size, align)
		return nil, err
	}
	Logger().Debug("allocated view",
		zap.String("struct", l.Struct),
		zap.Uint32("base", ptr),
		zap.Uint32("size", size))
	return v, nil
}

func size32(l *layout.Layout) (uint32, error) {
	if l.Size > math.MaxUint32 {
		return 0, errors.OutOfBounds(errors.PhaseBind, []string{l.Struct}, 0, l.Size)
	}
	return uint32(l.Size), nil
}

// Field returns the placement of a named field.
func (v *View) Field(name string) (layout.Placement, error) {
	p, ok := v.Layout.Field(name)
	if !ok {
		return layout.Placement{}, errors.New(errors.PhaseBind, errors.KindNotFound).
			Path(v.Layout.Struct, name).
			Detail("no such field").
			Build()
	}
	return p, nil
}

// Addr returns the absolute address of a named field.
func (v *View) Addr(name string) (uint32, error) {
	p, err := v.Field(name)
	if err != nil {
		return 0, err
	}
	return v.addr(p)
}

func (v *View) addr(p layout.Placement) (uint32, error) {
	end := uint64(v.Base) + p.End()
	if end > math.MaxUint32+1 {
		return 0, errors.OutOfBounds(errors.PhaseBind, []string{v.Layout.Struct, p.Name}, uint64(v.Base)+p.Offset, p.Size)
	}
	return v.Base + uint32(p.Offset), nil
}

// sized resolves a field and checks it is width bytes wide.
func (v *View) sized(name string, width uint64) (uint32, error) {
	p, err := v.Field(name)
	if err != nil {
		return 0, err
	}
	if p.Size != width {
		return 0, errors.TypeMismatch(errors.PhaseBind, []string{v.Layout.Struct, name}, p.Type, width, p.Size)
	}
	return v.addr(p)
}

// Bytes reads a field's bytes. The result may alias memory.
func (v *View) Bytes(name string) ([]byte, error) {
	p, err := v.Field(name)
	if err != nil {
		return nil, err
	}
	if p.Size > math.MaxUint32 {
		return nil, errors.OutOfBounds(errors.PhaseBind, []string{v.Layout.Struct, name}, uint64(v.Base)+p.Offset, p.Size)
	}
	addr, err := v.addr(p)
	if err != nil {
		return nil, err
	}
	return v.Mem.Read(addr, uint32(p.Size))
}

// SetBytes overwrites a field; data must be exactly the field's size.
func (v *View) SetBytes(name string, data []byte) error {
	addr, err := v.sized(name, uint64(len(data)))
	if err != nil {
		return err
	}
	return v.Mem.Write(addr, data)
}

// Zero clears the whole struct, padding included.
func (v *View) Zero() error {
	size, err := size32(v.Layout)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	if uint64(v.Base)+uint64(size) > math.MaxUint32+1 {
		return errors.OutOfBounds(errors.PhaseBind, []string{v.Layout.Struct}, uint64(v.Base), uint64(size))
	}
	return v.Mem.Write(v.Base, make([]byte, size))
}

func (v *View) ReadU8(name string) (uint8, error) {
	addr, err := v.sized(name, 1)
	if err != nil {
		return 0, err
	}
	return v.Mem.ReadU8(addr)
}

func (v *View) ReadU16(name string) (uint16, error) {
	addr, err := v.sized(name, 2)
	if err != nil {
		return 0, err
	}
	return v.Mem.ReadU16(addr)
}

func (v *View) ReadU32(name string) (uint32, error) {
	addr, err := v.sized(name, 4)
	if err != nil {
		return 0, err
	}
	return v.Mem.ReadU32(addr)
}

func (v *View) ReadU64(name string) (uint64, error) {
	addr, err := v.sized(name, 8)
	if err != nil {
		return 0, err
	}
	return v.Mem.ReadU64(addr)
}

func (v *View) WriteU8(name string, value uint8) error {
	addr, err := v.sized(name, 1)
	if err != nil {
		return err
	}
	return v.Mem.WriteU8(addr, value)
}

func (v *View) WriteU16(name string, value uint16) error {
	addr, err := v.sized(name, 2)
	if err != nil {
		return err
	}
	return v.Mem.WriteU16(addr, value)
}

func (v *View) WriteU32(name string, value uint32) error {
	addr, err := v.sized(name, 4)
	if err != nil {
		return err
	}
	return v.Mem.WriteU32(addr, value)
}

func (v *View) WriteU64(name string, value uint64) error {
	addr, err := v.sized(name, 8)
	if err != nil {
		return err
	}
	return v.Mem.WriteU64(addr, value)
}
