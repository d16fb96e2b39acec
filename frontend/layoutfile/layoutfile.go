// Package layoutfile reads layout declarations from YAML or JSON documents.
//
//	package: game
//	structs:
//	  - name: Player
//	    size: 0x38
//	    fields:
//	      - {name: Health, type: int32, offset: 0x10}
//	      - {name: Pos, type: Vec3, offset: 0x20}
//
// Documents are walked as yaml.Node trees so every declaration keeps its
// line and column, and so a field that repeats its offset key reaches the
// resolver with every occurrence. Any other repeated key is rejected.
package layoutfile

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/internal/gotype"
	"github.com/wippyai/memlayout/layout"
)

// Document is one YAML document of a layout file.
type Document struct {
	Path    string
	Package string
	Inputs  []layout.Input
}

// ParseFile reads every document of the file at path.
func ParseFile(path string) ([]*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ParseFailed(path, err)
	}
	defer f.Close()
	return Parse(path, f)
}

// Parse reads a multi-document YAML (or JSON) stream. path is only used
// for positions.
func Parse(path string, r io.Reader) ([]*Document, error) {
	dec := yaml.NewDecoder(r)
	var docs []*Document
	for {
		var root yaml.Node
		if err := dec.Decode(&root); err != nil {
			if stderrors.Is(err, io.EOF) {
				return docs, nil
			}
			return nil, errors.ParseFailed(path, err)
		}
		if len(root.Content) == 0 {
			continue
		}
		w := &walker{path: path}
		doc, err := w.document(root.Content[0])
		if err != nil {
			return nil, err
		}
		Logger().Debug("parsed layout document",
			zap.String("file", path),
			zap.String("package", doc.Package),
			zap.Int("structs", len(doc.Inputs)))
		docs = append(docs, doc)
	}
}

type walker struct {
	path string
}

func (w *walker) pos(n *yaml.Node) string {
	if w.path == "" {
		return fmt.Sprintf("%d:%d", n.Line, n.Column)
	}
	return fmt.Sprintf("%s:%d:%d", w.path, n.Line, n.Column)
}

func (w *walker) invalid(n *yaml.Node, format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidInput).
		Pos(w.pos(n)).
		Detail(format, args...).
		Build()
}

// mapping calls fn for each key/value pair of n. Keys in repeatable may
// appear more than once; any other repeated key is an error.
func (w *walker) mapping(n *yaml.Node, what string, repeatable map[string]bool, fn func(key string, k, v *yaml.Node) error) error {
	if n.Kind != yaml.MappingNode {
		return w.invalid(n, "%s must be a mapping", what)
	}
	first := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if prev, dup := first[k.Value]; dup && !repeatable[k.Value] {
			return w.invalid(k, "duplicate key %q in %s (first at %d:%d)", k.Value, what, prev.Line, prev.Column)
		}
		first[k.Value] = k
		if err := fn(k.Value, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) scalar(n *yaml.Node, key string) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", w.invalid(n, "%s must be a scalar", key)
	}
	return n.Value, nil
}

func (w *walker) strings(n *yaml.Node, key string) ([]string, error) {
	if n.Kind == yaml.ScalarNode {
		return []string{n.Value}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, w.invalid(n, "%s must be a list of strings", key)
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		s, err := w.scalar(c, key)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (w *walker) document(n *yaml.Node) (*Document, error) {
	doc := &Document{Path: w.path}
	err := w.mapping(n, "document", nil, func(key string, k, v *yaml.Node) error {
		switch key {
		case "package":
			s, err := w.scalar(v, key)
			doc.Package = s
			return err
		case "structs":
			if v.Kind != yaml.SequenceNode {
				return w.invalid(v, "structs must be a list")
			}
			for _, sn := range v.Content {
				in, err := w.structDecl(sn)
				if err != nil {
					return err
				}
				doc.Inputs = append(doc.Inputs, in)
			}
			return nil
		}
		return w.invalid(k, "unknown key %q", key)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (w *walker) structDecl(n *yaml.Node) (layout.Input, error) {
	in := layout.Input{Struct: layout.Struct{Pos: w.pos(n)}}
	err := w.mapping(n, "struct", nil, func(key string, k, v *yaml.Node) error {
		switch key {
		case "name":
			s, err := w.scalar(v, key)
			in.Struct.Name = s
			return err
		case "size":
			s, err := w.scalar(v, key)
			in.Size = &layout.Literal{Text: s, Pos: w.pos(v)}
			return err
		case "doc":
			s, err := w.scalar(v, key)
			in.Struct.Doc = s
			return err
		case "directives":
			list, err := w.strings(v, key)
			if err != nil {
				return err
			}
			for i, d := range list {
				name, args, _ := strings.Cut(strings.TrimSpace(d), " ")
				pos := w.pos(v)
				if v.Kind == yaml.SequenceNode {
					pos = w.pos(v.Content[i])
				}
				in.Struct.Directives = append(in.Struct.Directives, layout.Directive{
					Name: name,
					Args: strings.TrimSpace(args),
					Pos:  pos,
				})
			}
			return nil
		case "type_params":
			list, err := w.strings(v, key)
			if err != nil {
				return err
			}
			for _, tp := range list {
				name, constraint, _ := strings.Cut(strings.TrimSpace(tp), " ")
				constraint = strings.TrimSpace(constraint)
				if constraint == "" {
					constraint = "any"
				}
				in.Struct.TypeParams = append(in.Struct.TypeParams, layout.TypeParam{Name: name, Constraint: constraint})
			}
			return nil
		case "fields":
			if v.Kind != yaml.SequenceNode {
				return w.invalid(v, "fields must be a list")
			}
			for _, fn := range v.Content {
				fd, err := w.field(fn)
				if err != nil {
					return err
				}
				in.Fields = append(in.Fields, fd)
			}
			return nil
		}
		return w.invalid(k, "unknown struct key %q", key)
	})
	if err != nil {
		return layout.Input{}, err
	}
	if in.Struct.Name == "" {
		return layout.Input{}, w.invalid(n, "struct has no name")
	}
	return in, nil
}

var fieldRepeatable = map[string]bool{"offset": true}

func (w *walker) field(n *yaml.Node) (layout.FieldDecl, error) {
	fd := layout.FieldDecl{Pos: w.pos(n)}
	var size *yaml.Node
	err := w.mapping(n, "field", fieldRepeatable, func(key string, k, v *yaml.Node) error {
		switch key {
		case "name":
			s, err := w.scalar(v, key)
			fd.Name = s
			return err
		case "type":
			s, err := w.scalar(v, key)
			fd.Type.Expr = s
			return err
		case "offset":
			s, err := w.scalar(v, key)
			fd.Offsets = append(fd.Offsets, layout.Literal{Text: s, Pos: w.pos(v)})
			return err
		case "size":
			if _, err := w.scalar(v, key); err != nil {
				return err
			}
			size = v
			return nil
		case "doc":
			s, err := w.scalar(v, key)
			fd.Syntax.Doc = s
			return err
		case "comment":
			s, err := w.scalar(v, key)
			fd.Syntax.Comment = s
			return err
		case "tag":
			s, err := w.scalar(v, key)
			fd.Syntax.Tag = s
			return err
		case "annotations":
			list, err := w.strings(v, key)
			fd.Syntax.Annotations = list
			return err
		}
		return w.invalid(k, "unknown field key %q", key)
	})
	if err != nil {
		return layout.FieldDecl{}, err
	}
	if fd.Type.Expr == "" {
		return layout.FieldDecl{}, w.invalid(n, "field %q has no type", fd.Name)
	}

	if size == nil {
		fd.Type = gotype.Type(fd.Type.Expr)
		return fd, nil
	}
	// An explicit size pins the type's size, e.g. for named types.
	n64, err := layout.ParseOffset(size.Value)
	if err != nil {
		return layout.FieldDecl{}, errors.MalformedSize(w.pos(size), []string{fd.Name}, size.Value, err)
	}
	fd.Type = layout.KnownType(fd.Type.Expr, n64)
	return fd, nil
}
