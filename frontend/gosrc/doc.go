// Package gosrc reads layout declarations from Go source files.
//
// A struct is selected with a doc comment directive; its optional argument
// is the desired total size:
//
//	//memlayout:layout 0x38
//	type Player struct {
//		Health int32 `offset:"0x10"`
//		//memlayout:offset 0x20
//		Pos Vec3
//	}
//
// Field offsets come from the "offset" struct tag key or from an offset
// directive in the field's doc comment. Every occurrence is recorded so the
// resolver can report duplicates. Other memlayout directives on the struct
// are passed through as layout.Directive values, and a structs.HostLayout
// marker field is reported as the hostlayout directive.
package gosrc
