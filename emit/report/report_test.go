package report

import (
	"bytes"
	"strings"
	"testing"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/memlayout/layout"
)

func playerPlan(t *testing.T) *layout.Plan {
	t.Helper()
	p, err := layout.Resolve(layout.Input{
		Struct: layout.Struct{Name: "Player", Pos: "game.go:7:6"},
		Fields: []layout.FieldDecl{
			{Name: "Health", Type: layout.KnownType("int32", 4), Offsets: []layout.Literal{{Text: "0x10"}}},
			{Name: "Pos", Type: layout.DeferredType("Vec3"), Offsets: []layout.Literal{{Text: "0x20"}}},
			{Name: "Name", Type: layout.KnownType("[8]byte", 8), Offsets: []layout.Literal{{Text: "0x2c"}}},
		},
		Size: &layout.Literal{Text: "0x38"},
	}, layout.DefaultOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return p
}

func TestBuild(t *testing.T) {
	r := Build("game.go", []*layout.Plan{playerPlan(t)}, nil)
	if len(r.Structs) != 1 {
		t.Fatalf("structs: got %d", len(r.Structs))
	}
	st := r.Structs[0]
	if st.Name != "Player" || st.Pos != "game.go:7:6" || st.Size == nil || *st.Size != 0x38 || st.Trailing != "0x4" {
		t.Errorf("struct: got %+v", st)
	}

	pos := st.Fields[1]
	if pos.Size != nil || pos.Gap != "0xc" || pos.Padding == nil || *pos.Padding != 0xc {
		t.Errorf("Pos: got %+v", pos)
	}
	name := st.Fields[2]
	if name.Gap != "0xc - sizeof(Vec3)" || name.Padding != nil {
		t.Errorf("Name: got %+v", name)
	}
}

func TestBuild_Evaluated(t *testing.T) {
	r := Build("game.go", []*layout.Plan{playerPlan(t)}, layout.SizeTable{"Vec3": 12})
	st := r.Structs[0]
	if st.Error != "" {
		t.Fatalf("unexpected error: %s", st.Error)
	}
	if *st.Fields[1].Size != 12 || *st.Fields[2].Padding != 0 {
		t.Errorf("fields: got %+v", st.Fields)
	}

	r = Build("game.go", []*layout.Plan{playerPlan(t)}, layout.SizeTable{"Vec3": 16})
	if !strings.Contains(r.Structs[0].Error, "deferred_underflow") {
		t.Errorf("error: got %q", r.Structs[0].Error)
	}
}

func TestWrite_JSON(t *testing.T) {
	r := Build("game.go", []*layout.Plan{playerPlan(t)}, layout.SizeTable{"Vec3": 12})
	var buf bytes.Buffer
	if err := Write(&buf, r, FormatJSON); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got Report
	if err := j.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if got.Source != "game.go" || len(got.Structs[0].Fields) != 3 || got.Structs[0].Fields[2].Offset != 0x2c {
		t.Errorf("round trip: got %+v", got)
	}
	if !strings.Contains(buf.String(), `"gap": "0xc - sizeof(Vec3)"`) {
		t.Errorf("symbolic gap missing:\n%s", buf.String())
	}
}

func TestWrite_YAML(t *testing.T) {
	r := Build("game.go", []*layout.Plan{playerPlan(t)}, nil)
	var buf bytes.Buffer
	if err := Write(&buf, r, FormatYAML); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got Report
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if got.Structs[0].Name != "Player" || got.Structs[0].Fields[1].Type != "Vec3" {
		t.Errorf("round trip: got %+v", got)
	}
	if !strings.Contains(buf.String(), "name: Player") {
		t.Errorf("indentation:\n%s", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, Report{}, Format("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
}
