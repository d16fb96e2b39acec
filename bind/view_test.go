package bind

import (
	"errors"
	"testing"

	lerrors "github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/layout"
)

func playerLayout(t *testing.T) *layout.Layout {
	t.Helper()
	p, err := layout.Resolve(layout.Input{
		Struct: layout.Struct{Name: "Player"},
		Fields: []layout.FieldDecl{
			{Name: "Flags", Type: layout.KnownType("uint8", 1), Offsets: []layout.Literal{{Text: "0x2"}}},
			{Name: "Health", Type: layout.KnownType("int32", 4), Offsets: []layout.Literal{{Text: "0x10"}}},
			{Name: "Pos", Type: layout.DeferredType("Vec3"), Offsets: []layout.Literal{{Text: "0x20"}}},
			{Name: "ID", Type: layout.KnownType("uint64", 8), Offsets: []layout.Literal{{Text: "0x30"}}},
			{Name: "Kind", Type: layout.KnownType("uint16", 2), Offsets: []layout.Literal{{Text: "0x38"}}},
		},
		Size: &layout.Literal{Text: "0x40"},
	}, layout.DefaultOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	l, err := layout.Evaluate(p, layout.SizeTable{"Vec3": 12})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return l
}

func wantKind(t *testing.T, err error, kind lerrors.Kind) {
	t.Helper()
	var le *lerrors.Error
	if !errors.As(err, &le) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	if le.Kind != kind || le.Phase != lerrors.PhaseBind {
		t.Fatalf("got %s/%s, want bind/%s (%v)", le.Phase, le.Kind, kind, err)
	}
}

func TestView_ReadWrite(t *testing.T) {
	mem := wasmMemory(t)
	v := &View{Mem: mem, Base: 0x100, Layout: playerLayout(t)}

	if err := v.WriteU8("Flags", 0xA5); err != nil {
		t.Fatalf("WriteU8: %v", err)
	}
	if err := v.WriteU32("Health", 100); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
	if err := v.SetBytes("Pos", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}); err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if err := v.WriteU64("ID", 0xDEADBEEFCAFE); err != nil {
		t.Fatalf("WriteU64: %v", err)
	}
	if err := v.WriteU16("Kind", 7); err != nil {
		t.Fatalf("WriteU16: %v", err)
	}

	if got, _ := mem.ReadU32(0x110); got != 100 {
		t.Errorf("Health at 0x110: got %d", got)
	}
	if got, _ := mem.ReadU8(0x102); got != 0xA5 {
		t.Errorf("Flags at 0x102: got %#x", got)
	}
	if got, _ := mem.ReadU8(0x12b); got != 12 {
		t.Errorf("last Pos byte at 0x12b: got %d", got)
	}

	if got, _ := v.ReadU8("Flags"); got != 0xA5 {
		t.Errorf("ReadU8: got %#x", got)
	}
	if got, _ := v.ReadU16("Kind"); got != 7 {
		t.Errorf("ReadU16: got %d", got)
	}
	if got, _ := v.ReadU32("Health"); got != 100 {
		t.Errorf("ReadU32: got %d", got)
	}
	if got, _ := v.ReadU64("ID"); got != 0xDEADBEEFCAFE {
		t.Errorf("ReadU64: got %#x", got)
	}
	if b, _ := v.Bytes("Pos"); len(b) != 12 || b[0] != 1 {
		t.Errorf("Bytes: got %v", b)
	}
	if addr, _ := v.Addr("ID"); addr != 0x130 {
		t.Errorf("Addr: got %#x", addr)
	}

	if err := v.Zero(); err != nil {
		t.Fatalf("Zero: %v", err)
	}
	if got, _ := v.ReadU64("ID"); got != 0 {
		t.Errorf("after Zero: got %#x", got)
	}
}

func TestView_Errors(t *testing.T) {
	v := &View{Mem: NewBuffer(0x40), Layout: playerLayout(t)}

	_, err := v.ReadU32("Missing")
	wantKind(t, err, lerrors.KindNotFound)

	_, err = v.ReadU32("ID")
	wantKind(t, err, lerrors.KindTypeMismatch)

	err = v.SetBytes("Pos", []byte{1})
	wantKind(t, err, lerrors.KindTypeMismatch)

	v.Base = 0x10
	_, err = v.ReadU16("Kind")
	wantKind(t, err, lerrors.KindOutOfBounds)

	v.Base = 0xFFFFFFF0
	_, err = v.ReadU32("Health")
	wantKind(t, err, lerrors.KindOutOfBounds)
	wantKind(t, v.Zero(), lerrors.KindOutOfBounds)
}

func TestView_FieldWiderThanMemory(t *testing.T) {
	l := &layout.Layout{
		Struct: "Blob",
		Fields: []layout.Placement{{Name: "Data", Type: "[1 << 32]byte", Size: 1 << 32}},
		Size:   1 << 32,
	}
	v := &View{Mem: NewBuffer(16), Layout: l}

	b, err := v.Bytes("Data")
	if b != nil {
		t.Errorf("expected no data, got %d bytes", len(b))
	}
	wantKind(t, err, lerrors.KindOutOfBounds)
}

type bumpAllocator struct {
	next  uint32
	freed int
}

func (a *bumpAllocator) Alloc(size, align uint32) (uint32, error) {
	ptr := (a.next + align - 1) &^ (align - 1)
	a.next = ptr + size
	return ptr, nil
}

func (a *bumpAllocator) Free(ptr, size, align uint32) { a.freed++ }

func TestAlloc(t *testing.T) {
	mem := NewBuffer(0x200)
	if err := mem.Write(0, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}); err != nil {
		t.Fatal(err)
	}
	alloc := &bumpAllocator{next: 3}
	l := playerLayout(t)

	v, err := Alloc(mem, alloc, l, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if v.Base != 8 || alloc.next != 0x48 {
		t.Errorf("base %#x next %#x", v.Base, alloc.next)
	}
	if got, _ := v.ReadU32("Health"); got != 0 {
		t.Errorf("allocated struct must be zeroed, Health=%#x", got)
	}

	alloc.next = 0x1F0
	if _, err := Alloc(mem, alloc, l, 8); err == nil {
		t.Fatal("expected out of bounds error")
	}
	if alloc.freed != 1 {
		t.Errorf("failed allocation must be freed, freed=%d", alloc.freed)
	}
}
