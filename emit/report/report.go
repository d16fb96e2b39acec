// Package report exports resolved plans as JSON or YAML.
package report

import (
	"io"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/layout"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Report describes the layouts resolved from one input.
type Report struct {
	Source  string   `json:"source,omitempty" yaml:"source,omitempty"`
	Arch    string   `json:"arch,omitempty" yaml:"arch,omitempty"`
	Structs []Struct `json:"structs" yaml:"structs"`
}

// Struct is one resolved declaration. Size is set when it is known
// statically or after evaluation; Error holds the evaluation failure.
type Struct struct {
	Name     string  `json:"name" yaml:"name"`
	Pos      string  `json:"pos,omitempty" yaml:"pos,omitempty"`
	Size     *uint64 `json:"size,omitempty" yaml:"size,omitempty"`
	Trailing string  `json:"trailing,omitempty" yaml:"trailing,omitempty"`
	Fields   []Field `json:"fields" yaml:"fields"`
	Error    string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Field is one resolved field and the gap in front of it.
// Gap is the symbolic form; Padding the evaluated byte count.
type Field struct {
	Name    string  `json:"name" yaml:"name"`
	Type    string  `json:"type" yaml:"type"`
	Offset  uint64  `json:"offset" yaml:"offset"`
	Size    *uint64 `json:"size,omitempty" yaml:"size,omitempty"`
	Gap     string  `json:"gap" yaml:"gap"`
	Padding *uint64 `json:"padding,omitempty" yaml:"padding,omitempty"`
}

// Build describes plans. When s is non-nil each plan is also evaluated and
// the concrete sizes and padding are filled in. Nil plans, left by failed
// declarations in a batch, are skipped.
func Build(source string, plans []*layout.Plan, s layout.Sizer) Report {
	r := Report{Source: source, Structs: make([]Struct, 0, len(plans))}
	for _, p := range plans {
		if p == nil {
			continue
		}
		r.Structs = append(r.Structs, describe(p, s))
	}
	return r
}

func describe(p *layout.Plan, s layout.Sizer) Struct {
	st := Struct{
		Name:   p.Name(),
		Pos:    p.Struct().Pos,
		Fields: make([]Field, 0, p.Len()),
	}
	if size, ok := p.Size(); ok {
		st.Size = &size
	}
	if g, ok := p.Trailing(); ok {
		st.Trailing = g.String()
	}

	for _, e := range p.Entries() {
		f := Field{
			Name:   e.Field.Name,
			Type:   e.Field.Type.Expr,
			Offset: e.Field.Offset,
			Gap:    e.Gap.String(),
		}
		if n, ok := e.Field.Type.Size.Bytes(); ok {
			f.Size = &n
		}
		if n, ok := e.Gap.Len(); ok {
			f.Padding = &n
		}
		st.Fields = append(st.Fields, f)
	}

	if s == nil {
		return st
	}
	l, err := layout.Evaluate(p, s)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Size = &l.Size
	for i, pl := range l.Fields {
		size, pad := pl.Size, pl.Padding
		st.Fields[i].Size = &size
		st.Fields[i].Padding = &pad
	}
	return st
}

// Write encodes r to w in the given format.
func Write(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := j.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(errors.PhaseEmit, errors.KindInvalidInput, err, "encode json report")
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(errors.PhaseEmit, errors.KindInvalidInput, err, "encode yaml report")
		}
		return enc.Close()
	}
	return errors.NotFound(errors.PhaseEmit, "report format", string(f))
}
