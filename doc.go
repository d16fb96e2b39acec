// Package memlayout computes explicit, byte-exact struct layouts from
// declared field offsets and emits them as Go structs.
//
// A declaration names each field's absolute byte offset and, optionally, the
// struct's total size. The resolver derives the padding in front of every
// field and after the last one; the emitter writes the padding out as blank
// byte arrays so the Go compiler reproduces the layout verbatim.
//
// # Architecture Overview
//
//	memlayout/           Root package with the Memory and Allocator interfaces
//	├── layout/          Resolver: declarations to gap/field plans, evaluation
//	├── errors/          Structured, position-attributed error types
//	├── frontend/
//	│   ├── gosrc/       Annotated Go struct declarations
//	│   ├── layoutfile/  YAML and JSON layout files
//	│   └── witrec/      WIT records at canonical ABI offsets
//	├── emit/
//	│   ├── gocode/      Go source with compile-time layout checks
//	│   └── report/      JSON and YAML plan reports
//	├── bind/            Field access to laid-out structs in linear memory
//	└── cmd/memlayout/   Command line tool and interactive inspector
//
// # Quick Start
//
// Annotate a struct and run the generator:
//
//	//memlayout:layout 0x38
//	type Player struct {
//		Health int32 `offset:"0x10"`
//		Pos    Vec3  `offset:"0x20"`
//	}
//
//	memlayout gen -in player.go -o player_layout.go
//
// The generated struct carries `_ [N]byte` padding. Padding after a field
// whose size only the compiler knows is written as
// `0xc - unsafe.Sizeof(*new(Vec3))`, so a field that outgrows its slot is a
// compile error rather than a silent overlap.
//
// # Linear Memory
//
// Evaluated layouts can be read and written in place, for example in a
// WebAssembly module's memory:
//
//	l, _ := layout.Evaluate(plan, sizes)
//	v := &bind.View{Mem: bind.WrapMemory(mod.ExportedMemory("memory")), Base: ptr, Layout: l}
//	hp, _ := v.ReadU32("Health")
package memlayout
