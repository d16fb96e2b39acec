// Package errors provides structured diagnostics for memlayout.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Every resolver diagnostic carries Pos, the position of the
// offending syntactic element (offset literal, field, or size directive), and
// Path, the struct and field it belongs to.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindOffsetOrdering).
//		Pos("player.go:12:2").
//		Path("Player", "Health").
//		Detail("offset %#x overlaps predecessor", 0x10).
//		Build()
//
// Or use convenience constructors for the resolver's failure modes:
//
//	err := errors.MissingOffset(pos, []string{"Player", "Health"})
//	err := errors.SizeTooSmall(pos, []string{"Player"}, 0x30, 0x34)
//
// Match on kind alone with a phase-less target:
//
//	errors.Is(err, &errors.Error{Kind: errors.KindSizeTooSmall})
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
