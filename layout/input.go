package layout

import "go/token"

// Literal is an integer literal exactly as written, with its source position.
type Literal struct {
	Text string
	Pos  string
}

// Directive is a declaration-level annotation such as a manual layout request.
type Directive struct {
	Name string
	Args string
	Pos  string
}

// TypeParam is one generic parameter of a struct declaration.
type TypeParam struct {
	Name       string
	Constraint string
}

// Struct is the declaration-level metadata carried through to emission.
type Struct struct {
	Name       string
	Pos        string
	Doc        string
	TypeParams []TypeParam
	Directives []Directive
}

// Exported reports whether the struct is visible outside its package.
func (s Struct) Exported() bool { return token.IsExported(s.Name) }

// IsTypeParam reports whether name is one of the struct's type parameters.
func (s Struct) IsTypeParam(name string) bool {
	for _, tp := range s.TypeParams {
		if tp.Name == name {
			return true
		}
	}
	return false
}

// Syntax is the field payload emission preserves verbatim.
type Syntax struct {
	Doc         string
	Comment     string
	Tag         string
	Annotations []string
}

func (s Syntax) clone() Syntax {
	s.Annotations = append([]string(nil), s.Annotations...)
	return s
}

// FieldDecl is one declared field as supplied by a front end.
// Offsets holds every offset annotation found on the field, in source order;
// the resolver requires exactly one.
type FieldDecl struct {
	Name    string
	Pos     string
	Type    Type
	Offsets []Literal
	Syntax  Syntax
}

// Exported reports whether the field is visible outside its package.
func (f FieldDecl) Exported() bool { return token.IsExported(f.Name) }

// Input is one struct declaration handed to the resolver.
// Size is the optional desired total size.
type Input struct {
	Struct Struct
	Fields []FieldDecl
	Size   *Literal
}
