package gosrc

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/internal/gotype"
	"github.com/wippyai/memlayout/layout"
)

const (
	directivePrefix = "//memlayout:"
	// DirectiveLayout marks a struct for resolution; its optional argument
	// is the desired total size.
	DirectiveLayout = "layout"
	// DirectiveOffset declares a field offset in a comment instead of a tag.
	DirectiveOffset = "offset"
	// TagKey is the struct tag key carrying a field offset.
	TagKey = "offset"
)

// File is one parsed source file and the layout declarations found in it.
type File struct {
	Path    string
	Package string
	Inputs  []layout.Input
}

// ParseFile parses a single Go file. src follows go/parser.ParseFile:
// when nil the file is read from path.
func ParseFile(path string, src any) (*File, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, errors.ParseFailed(path, err)
	}

	out := &File{Path: path, Package: f.Name.Name}
	p := &fileParser{fset: fset}

	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			dirs, docText := p.directives(doc)
			layoutDir, ok := findDirective(dirs, DirectiveLayout)
			if !ok {
				continue
			}

			in, err := p.structInput(ts, dirs, layoutDir, docText)
			if err != nil {
				return nil, err
			}
			Logger().Debug("found layout struct",
				zap.String("file", path),
				zap.String("struct", in.Struct.Name),
				zap.Int("fields", len(in.Fields)))
			out.Inputs = append(out.Inputs, in)
		}
	}
	return out, nil
}

// ParseDir parses every non-test .go file of dir, in name order.
func ParseDir(dir string) ([]*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.ParseFailed(dir, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var files []*File
	for _, name := range names {
		f, err := ParseFile(filepath.Join(dir, name), nil)
		if err != nil {
			return nil, err
		}
		if len(f.Inputs) > 0 {
			files = append(files, f)
		}
	}
	return files, nil
}

type fileParser struct {
	fset *token.FileSet
}

func (p *fileParser) pos(pos token.Pos) string {
	return p.fset.Position(pos).String()
}

// directives splits a comment group into memlayout directives and the
// remaining comment lines, kept verbatim.
func (p *fileParser) directives(cg *ast.CommentGroup) ([]layout.Directive, string) {
	if cg == nil {
		return nil, ""
	}
	var dirs []layout.Directive
	var lines []string
	for _, c := range cg.List {
		if name, args, ok := parseDirective(c.Text); ok {
			dirs = append(dirs, layout.Directive{Name: name, Args: args, Pos: p.pos(c.Slash)})
			continue
		}
		lines = append(lines, c.Text)
	}
	return dirs, strings.Join(lines, "\n")
}

func parseDirective(text string) (name, args string, ok bool) {
	rest, ok := strings.CutPrefix(text, directivePrefix)
	if !ok {
		return "", "", false
	}
	name, args, _ = strings.Cut(rest, " ")
	return name, strings.TrimSpace(args), name != ""
}

func findDirective(dirs []layout.Directive, name string) (layout.Directive, bool) {
	for _, d := range dirs {
		if d.Name == name {
			return d, true
		}
	}
	return layout.Directive{}, false
}

func (p *fileParser) structInput(ts *ast.TypeSpec, dirs []layout.Directive, layoutDir layout.Directive, doc string) (layout.Input, error) {
	st, ok := ts.Type.(*ast.StructType)
	if !ok {
		return layout.Input{}, errors.Unsupported(errors.PhaseParse, p.pos(ts.Pos()),
			"expected struct but found "+kindOf(ts.Type))
	}

	in := layout.Input{
		Struct: layout.Struct{
			Name: ts.Name.Name,
			Pos:  p.pos(ts.Name.Pos()),
			Doc:  doc,
		},
	}

	for _, d := range dirs {
		if d.Name != DirectiveLayout {
			in.Struct.Directives = append(in.Struct.Directives, d)
		}
	}

	if size := sizeArg(layoutDir.Args); size != "" {
		in.Size = &layout.Literal{Text: size, Pos: layoutDir.Pos}
	}

	if ts.TypeParams != nil {
		for _, field := range ts.TypeParams.List {
			constraint := gotype.String(field.Type)
			for _, name := range field.Names {
				in.Struct.TypeParams = append(in.Struct.TypeParams, layout.TypeParam{
					Name:       name.Name,
					Constraint: constraint,
				})
			}
		}
	}

	for _, field := range st.Fields.List {
		if isHostLayout(field) {
			in.Struct.Directives = append(in.Struct.Directives, layout.Directive{
				Name: layout.DirectiveHostLayout,
				Pos:  p.pos(field.Pos()),
			})
			continue
		}
		fd, err := p.field(ts.Name.Name, field)
		if err != nil {
			return layout.Input{}, err
		}
		in.Fields = append(in.Fields, fd)
	}
	return in, nil
}

// sizeArg accepts "0x38" or "size=0x38".
func sizeArg(args string) string {
	for _, a := range strings.Fields(args) {
		if v, ok := strings.CutPrefix(a, "size="); ok {
			return v
		}
		if !strings.Contains(a, "=") {
			return a
		}
	}
	return ""
}

func (p *fileParser) field(structName string, field *ast.Field) (layout.FieldDecl, error) {
	switch len(field.Names) {
	case 0:
		return layout.FieldDecl{}, errors.Unsupported(errors.PhaseParse, p.pos(field.Pos()),
			"embedded field "+gotype.String(field.Type)+" in "+structName)
	case 1:
	default:
		return layout.FieldDecl{}, errors.Unsupported(errors.PhaseParse, p.pos(field.Names[1].Pos()),
			"fields with explicit offsets must be declared one per line")
	}

	typeSrc := gotype.String(field.Type)
	fd := layout.FieldDecl{
		Name: field.Names[0].Name,
		Pos:  p.pos(field.Names[0].Pos()),
		Type: typeOf(field.Type, typeSrc),
	}

	dirs, doc := p.directives(field.Doc)
	fd.Syntax.Doc = doc
	for _, d := range dirs {
		if d.Name == DirectiveOffset {
			fd.Offsets = append(fd.Offsets, layout.Literal{Text: d.Args, Pos: d.Pos})
			continue
		}
		fd.Syntax.Annotations = append(fd.Syntax.Annotations, directivePrefix+strings.TrimSpace(d.Name+" "+d.Args))
	}
	if field.Comment != nil {
		parts := make([]string, 0, len(field.Comment.List))
		for _, c := range field.Comment.List {
			parts = append(parts, strings.TrimSpace(c.Text))
		}
		fd.Syntax.Comment = strings.Join(parts, " ")
	}

	if field.Tag != nil {
		raw, err := strconv.Unquote(field.Tag.Value)
		if err != nil {
			return layout.FieldDecl{}, errors.InvalidInput(errors.PhaseParse, p.pos(field.Tag.Pos()), "malformed struct tag")
		}
		pairs, ok := splitTag(raw)
		if !ok {
			return layout.FieldDecl{}, errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Pos(p.pos(field.Tag.Pos())).
				Path(structName, fd.Name).
				Detail("malformed struct tag %s", field.Tag.Value).
				Build()
		}
		var rest []tagPair
		for _, pair := range pairs {
			if pair.key == TagKey {
				fd.Offsets = append(fd.Offsets, layout.Literal{Text: pair.value, Pos: p.pos(field.Tag.Pos())})
				continue
			}
			rest = append(rest, pair)
		}
		fd.Syntax.Tag = joinTag(rest)
	}

	return fd, nil
}

func typeOf(expr ast.Expr, src string) layout.Type {
	if n, ok := gotype.Size(expr); ok {
		return layout.KnownType(src, n)
	}
	return layout.DeferredType(src)
}

func isHostLayout(field *ast.Field) bool {
	sel, ok := field.Type.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "structs" && sel.Sel.Name == "HostLayout"
}

func kindOf(expr ast.Expr) string {
	switch expr.(type) {
	case *ast.InterfaceType:
		return "interface"
	case *ast.Ident, *ast.SelectorExpr:
		return "named type " + gotype.String(expr)
	case *ast.ArrayType:
		return "array"
	case *ast.MapType:
		return "map"
	case *ast.FuncType:
		return "func"
	}
	return gotype.String(expr)
}
