// Package layout resolves explicit, byte-exact struct layouts.
//
// Given a struct's fields in declaration order, each with a declared absolute
// byte offset, and optionally a desired total size, Resolve produces a Plan:
// the ordered gap/field sequence that places every field at exactly its
// declared offset when laid out verbatim.
//
// # Sizes
//
// A field type's size is either Known (a fixed-size primitive the front end
// could size) or Deferred (a symbolic "size of T" only the host compiler can
// evaluate). Gaps after a Deferred field stay symbolic, relative - size(T),
// so the host's constant evaluation rejects a negative length at build time.
// Gaps after a Known field are folded and checked immediately.
//
// # Usage
//
//	plan, err := layout.Resolve(layout.Input{
//		Struct: layout.Struct{Name: "Player"},
//		Fields: []layout.FieldDecl{
//			{Name: "Health", Type: layout.KnownType("int32", 4), Offsets: []layout.Literal{{Text: "0x10"}}},
//			{Name: "Pos", Type: layout.DeferredType("Vec3"), Offsets: []layout.Literal{{Text: "0x20"}}},
//		},
//		Size: &layout.Literal{Text: "0x38"},
//	}, layout.DefaultOptions())
//
//	// Evaluate with the sizes the host would compute.
//	l, err := layout.Evaluate(plan, layout.SizeTable{"Vec3": 12})
//
// # Ordering
//
// Declared offsets must not decrease. Whether an offset may equal its
// predecessor's is selected by Options.Ordering; the default accepts it only
// after a field that may be zero-sized.
//
// Resolve is a pure function with no shared state; ResolveAll runs
// independent declarations in parallel.
package layout
