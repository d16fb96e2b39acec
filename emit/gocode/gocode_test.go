package gocode

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	lerrors "github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/layout"
)

// structsImporter serves a stand-in "structs" package so generated code
// can be type-checked without export data.
type structsImporter struct{}

func (structsImporter) Import(path string) (*types.Package, error) {
	switch path {
	case "unsafe":
		return types.Unsafe, nil
	case "structs":
	default:
		return nil, fmt.Errorf("unexpected import %q", path)
	}
	pkg := types.NewPackage("structs", "structs")
	obj := types.NewTypeName(token.NoPos, pkg, "HostLayout", nil)
	types.NewNamed(obj, types.NewStruct(nil, nil), nil)
	pkg.Scope().Insert(obj)
	pkg.MarkComplete()
	return pkg, nil
}

// typeCheck compiles src together with extra declarations the way the Go
// compiler would for amd64.
func typeCheck(t *testing.T, src []byte, extra string) error {
	t.Helper()
	fset := token.NewFileSet()
	gen, err := parser.ParseFile(fset, "gen.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse generated: %v\n%s", err, src)
	}
	files := []*ast.File{gen}
	if extra != "" {
		f, err := parser.ParseFile(fset, "extra.go", "package game\n"+extra, 0)
		if err != nil {
			t.Fatalf("parse extra: %v", err)
		}
		files = append(files, f)
	}
	conf := types.Config{
		Importer: structsImporter{},
		Sizes:    types.SizesFor("gc", "amd64"),
	}
	_, err = conf.Check("game", fset, files, nil)
	return err
}

// lines normalizes gofmt column alignment so tests can match lines.
func lines(src []byte) []string {
	var out []string
	for _, l := range strings.Split(string(src), "\n") {
		out = append(out, strings.Join(strings.Fields(l), " "))
	}
	return out
}

func containsLines(t *testing.T, src []byte, want ...string) {
	t.Helper()
	got := lines(src)
	i := 0
	for _, l := range got {
		if i < len(want) && l == want[i] {
			i++
		}
	}
	if i < len(want) {
		t.Errorf("missing line %q in:\n%s", want[i], src)
	}
}

func resolve(t *testing.T, in layout.Input) *layout.Plan {
	t.Helper()
	p, err := layout.Resolve(in, layout.DefaultOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return p
}

func field(name, offset string, typ layout.Type) layout.FieldDecl {
	return layout.FieldDecl{Name: name, Type: typ, Offsets: []layout.Literal{{Text: offset}}}
}

func playerInput() layout.Input {
	return layout.Input{
		Struct: layout.Struct{Name: "Player", Doc: "// Player is a player."},
		Fields: []layout.FieldDecl{
			{
				Name:    "Health",
				Type:    layout.KnownType("int32", 4),
				Offsets: []layout.Literal{{Text: "0x10"}},
				Syntax:  layout.Syntax{Doc: "Health points.", Tag: `json:"health"`},
			},
			{
				Name:    "Pos",
				Type:    layout.DeferredType("Vec3"),
				Offsets: []layout.Literal{{Text: "0x20"}},
				Syntax:  layout.Syntax{Comment: "// position"},
			},
			field("Name", "0x2c", layout.KnownType("[8]byte", 8)),
		},
		Size: &layout.Literal{Text: "0x38"},
	}
}

func TestRender(t *testing.T) {
	src, err := Render(File{
		Package: "game",
		Source:  "game.go",
		Plans:   []*layout.Plan{resolve(t, playerInput())},
	}, DefaultOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if !strings.HasPrefix(string(src), "// Code generated by memlayout from game.go. DO NOT EDIT.\n") {
		t.Errorf("header: %s", src)
	}
	containsLines(t, src,
		"package game",
		`"structs"`,
		`"unsafe"`,
		"// Player is a player.",
		"type Player struct {",
		"_ structs.HostLayout",
		"_ [0x10]byte",
		"// Health points.",
		"Health int32 `json:\"health\"`",
		"_ [0xc]byte",
		"Pos Vec3 // position",
		"_ [0xc - unsafe.Sizeof(*new(Vec3))]byte",
		"Name [8]byte",
		"_ [0x4]byte",
		"}",
		"// Player layout checks.",
		"_ = [1]struct{}{}[unsafe.Offsetof(Player{}.Health)-0x10]",
		"_ = [1]struct{}{}[unsafe.Offsetof(Player{}.Pos)-0x20]",
		"_ = [1]struct{}{}[unsafe.Offsetof(Player{}.Name)-0x2c]",
		"_ = [1]struct{}{}[unsafe.Sizeof(Player{})-0x38]",
	)

	if err := typeCheck(t, src, "type Vec3 [3]float32"); err != nil {
		t.Errorf("generated code must compile when Vec3 fits: %v\n%s", err, src)
	}
}

func TestRender_HostCheck(t *testing.T) {
	src, err := Render(File{Package: "game", Plans: []*layout.Plan{resolve(t, playerInput())}}, DefaultOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	tests := []struct {
		name string
		vec3 string
		ok   bool
	}{
		{"exact_fit", "type Vec3 [3]float32", true},
		{"smaller", "type Vec3 [2]float32", true},
		{"too_large", "type Vec3 [4]float32", false},
		{"wide_struct", "type Vec3 struct{ X, Y, Z float64 }", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := typeCheck(t, src, tc.vec3)
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("oversized field must fail to compile")
			}
		})
	}
}

func TestRender_NoAssertions(t *testing.T) {
	in := layout.Input{
		Struct: layout.Struct{Name: "Small"},
		Fields: []layout.FieldDecl{field("A", "4", layout.KnownType("uint32", 4))},
	}
	src, err := Render(File{Package: "game", Plans: []*layout.Plan{resolve(t, in)}}, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(src), "unsafe") {
		t.Errorf("unsafe must not be imported without deferred gaps or checks:\n%s", src)
	}
	if err := typeCheck(t, src, ""); err != nil {
		t.Errorf("type check: %v", err)
	}
}

func TestRender_ZeroGapsOmitted(t *testing.T) {
	in := layout.Input{
		Struct: layout.Struct{Name: "Dense"},
		Fields: []layout.FieldDecl{
			field("A", "0", layout.KnownType("uint32", 4)),
			field("B", "4", layout.KnownType("uint32", 4)),
		},
		Size: &layout.Literal{Text: "8"},
	}
	src, err := Render(File{Package: "game", Plans: []*layout.Plan{resolve(t, in)}}, DefaultOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(src), "]byte") {
		t.Errorf("zero-length padding must be omitted:\n%s", src)
	}
	if err := typeCheck(t, src, ""); err != nil {
		t.Errorf("type check: %v", err)
	}
}

func TestRender_Generic(t *testing.T) {
	generic := layout.Struct{Name: "Box", TypeParams: []layout.TypeParam{{Name: "T", Constraint: "any"}}}

	t.Run("known_gaps", func(t *testing.T) {
		in := layout.Input{
			Struct: generic,
			Fields: []layout.FieldDecl{
				field("N", "0", layout.KnownType("uint32", 4)),
				field("V", "8", layout.DeferredType("T")),
			},
		}
		src, err := Render(File{Package: "game", Plans: []*layout.Plan{resolve(t, in)}}, DefaultOptions())
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		containsLines(t, src, "type Box[T any] struct {", "V T")
		if strings.Contains(string(src), "layout checks") {
			t.Error("generic structs get no assertions")
		}
	})

	t.Run("type_param_gap", func(t *testing.T) {
		in := layout.Input{
			Struct: generic,
			Fields: []layout.FieldDecl{
				field("V", "0", layout.DeferredType("[2]T")),
				field("N", "16", layout.KnownType("uint32", 4)),
			},
		}
		_, err := Render(File{Package: "game", Plans: []*layout.Plan{resolve(t, in)}}, DefaultOptions())
		var le *lerrors.Error
		if !errors.As(err, &le) || le.Kind != lerrors.KindUnsupported || le.Phase != lerrors.PhaseEmit {
			t.Fatalf("expected emit unsupported error, got %v", err)
		}
	})
}

func TestRender_Comments(t *testing.T) {
	in := layout.Input{
		Struct: layout.Struct{Name: "C", Doc: "/* block\n   doc */"},
		Fields: []layout.FieldDecl{{
			Name:    "A",
			Type:    layout.KnownType("uint8", 1),
			Offsets: []layout.Literal{{Text: "0"}},
			Syntax: layout.Syntax{
				Doc:         "first\n\nsecond",
				Tag:         "raw:\"`\"",
				Annotations: []string{"//memlayout:note keep"},
			},
		}},
	}
	src, err := Render(File{Package: "game", Plans: []*layout.Plan{resolve(t, in)}}, DefaultOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	containsLines(t, src, "/* block", "doc */", "type C struct {", "// first", "//", "// second", "//memlayout:note keep", `A uint8 "raw:\"` + "`" + `\""`)
}

func TestRender_Invalid(t *testing.T) {
	_, err := Render(File{}, DefaultOptions())
	var le *lerrors.Error
	if !errors.As(err, &le) || le.Kind != lerrors.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}

	src, err := Render(File{Package: "empty"}, DefaultOptions())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(src), "import") {
		t.Errorf("no imports without plans:\n%s", src)
	}
}
