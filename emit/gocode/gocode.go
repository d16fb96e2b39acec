// Package gocode renders resolved layout plans as Go source.
//
// Each plan becomes a struct whose padding is spelled out as blank byte
// arrays. A gap that follows a field of deferred size is written as a
// constant expression over unsafe.Sizeof, so a field that outgrows its slot
// makes the array length negative and the package fails to compile.
//
// Non-generic structs additionally get compile-time assertions that every
// named field sits at its declared offset and that the struct has its
// declared size. A trailing zero-sized field can make Go append padding the
// plan cannot see; the size assertion reports it.
package gocode

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"
	"strings"

	"github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/internal/gotype"
	"github.com/wippyai/memlayout/layout"
)

// File is one generated Go file.
type File struct {
	Package string
	// Source names the input the plans came from; it appears in the header.
	Source string
	Plans  []*layout.Plan
}

// Options controls rendering.
type Options struct {
	// Assertions emits compile-time offset and size checks.
	Assertions bool
}

// DefaultOptions returns the default rendering options.
func DefaultOptions() Options {
	return Options{Assertions: true}
}

// Render writes f as a gofmt'd Go file.
func Render(f File, opts Options) ([]byte, error) {
	if f.Package == "" {
		return nil, errors.InvalidInput(errors.PhaseEmit, f.Source, "no package name")
	}

	r := &renderer{opts: opts}
	for _, p := range f.Plans {
		if err := r.plan(p); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	if f.Source != "" {
		fmt.Fprintf(&out, "// Code generated by memlayout from %s. DO NOT EDIT.\n\n", f.Source)
	} else {
		out.WriteString("// Code generated by memlayout. DO NOT EDIT.\n\n")
	}
	fmt.Fprintf(&out, "package %s\n\n", f.Package)
	if len(f.Plans) > 0 {
		out.WriteString("import (\n\t\"structs\"\n")
		if r.unsafe {
			out.WriteString("\t\"unsafe\"\n")
		}
		out.WriteString(")\n")
	}
	out.Write(r.body.Bytes())

	src, err := format.Source(out.Bytes())
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidInput, err, "format generated code")
	}
	return src, nil
}

type renderer struct {
	body   bytes.Buffer
	opts   Options
	unsafe bool
}

func (r *renderer) plan(p *layout.Plan) error {
	st := p.Struct()
	if err := checkGeneric(p, st); err != nil {
		return err
	}

	b := &r.body
	b.WriteByte('\n')
	writeComment(b, "", st.Doc)
	fmt.Fprintf(b, "type %s%s struct {\n", st.Name, typeParams(st.TypeParams))
	b.WriteString("\t_ structs.HostLayout\n")

	for _, seg := range p.Segments() {
		if seg.Kind == layout.SegmentGap {
			r.gap(seg.Gap)
			continue
		}
		r.field(seg.Field)
	}
	b.WriteString("}\n")

	if r.opts.Assertions && len(st.TypeParams) == 0 {
		r.assertions(p)
	}
	return nil
}

func (r *renderer) gap(g layout.Gap) {
	if n, ok := g.Len(); ok {
		if n > 0 {
			fmt.Fprintf(&r.body, "\t_ [%#x]byte\n", n)
		}
		return
	}
	r.unsafe = true
	fmt.Fprintf(&r.body, "\t_ [%#x - unsafe.Sizeof(*new(%s))]byte\n", g.Relative, g.Minus.Expr)
}

func (r *renderer) field(f layout.Field) {
	b := &r.body
	writeComment(b, "\t", f.Syntax.Doc)
	for _, a := range f.Syntax.Annotations {
		writeComment(b, "\t", a)
	}
	fmt.Fprintf(b, "\t%s %s", f.Name, f.Type.Expr)
	if f.Syntax.Tag != "" {
		b.WriteByte(' ')
		b.WriteString(quoteTag(f.Syntax.Tag))
	}
	if f.Syntax.Comment != "" {
		b.WriteByte(' ')
		b.WriteString(commentLine(f.Syntax.Comment))
	}
	b.WriteByte('\n')
}

func (r *renderer) assertions(p *layout.Plan) {
	var checks []string
	for _, e := range p.Entries() {
		if e.Field.Name == "_" {
			continue
		}
		checks = append(checks, fmt.Sprintf("unsafe.Offsetof(%s{}.%s) - %#x", p.Name(), e.Field.Name, e.Field.Offset))
	}
	if size, ok := p.DesiredSize(); ok {
		checks = append(checks, fmt.Sprintf("unsafe.Sizeof(%s{}) - %#x", p.Name(), size))
	}
	if len(checks) == 0 {
		return
	}

	r.unsafe = true
	b := &r.body
	fmt.Fprintf(b, "\n// %s layout checks.\nvar (\n", p.Name())
	for _, c := range checks {
		fmt.Fprintf(b, "\t_ = [1]struct{}{}[%s]\n", c)
	}
	b.WriteString(")\n")
}

// checkGeneric rejects padding whose length depends on a type parameter:
// unsafe.Sizeof over a type parameter is not a constant.
func checkGeneric(p *layout.Plan, st layout.Struct) error {
	if len(st.TypeParams) == 0 {
		return nil
	}
	for _, s := range p.Segments() {
		if s.Kind != layout.SegmentGap || !s.Gap.Symbolic {
			continue
		}
		if gotype.Mentions(s.Gap.Minus.Expr, st.IsTypeParam) {
			return errors.New(errors.PhaseEmit, errors.KindUnsupported).
				Pos(st.Pos).
				Path(st.Name).
				Type(s.Gap.Minus.Expr).
				Detail("padding after a field sized by a type parameter cannot be a constant").
				Build()
		}
	}
	return nil
}

func typeParams(tps []layout.TypeParam) string {
	if len(tps) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tps))
	for _, tp := range tps {
		parts = append(parts, tp.Name+" "+tp.Constraint)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func writeComment(b *bytes.Buffer, indent, text string) {
	if text == "" {
		return
	}
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		b.WriteString(indent)
		if inBlock || strings.HasPrefix(line, "/*") {
			b.WriteString(line)
			inBlock = !strings.Contains(line, "*/")
		} else {
			b.WriteString(commentLine(line))
		}
		b.WriteByte('\n')
	}
}

func commentLine(line string) string {
	line = strings.TrimRight(line, " \t")
	if strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") {
		return line
	}
	if line == "" {
		return "//"
	}
	return "// " + line
}

func quoteTag(tag string) string {
	if strings.ContainsRune(tag, '`') {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}
