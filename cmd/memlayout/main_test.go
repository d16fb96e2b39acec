package main

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	j "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/wippyai/memlayout/bind"
	"github.com/wippyai/memlayout/emit/report"
	"github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/frontend/gosrc"
	"github.com/wippyai/memlayout/frontend/layoutfile"
	"github.com/wippyai/memlayout/layout"
)

const gameSrc = `package game

//memlayout:layout 0x38
type Player struct {
	Health int32 ` + "`offset:\"0x10\"`" + `
	Pos    Vec3  ` + "`offset:\"0x20\"`" + `
	Name   [8]byte ` + "`offset:\"0x2c\"`" + `
}
`

const badYAML = `package: game
structs:
  - name: Good
    fields:
      - {name: A, type: int32, offset: 0}
  - name: Bad
    fields:
      - {name: A, type: int32, offset: 0}
      - {name: B, type: int32, offset: 2}
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func wantKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	var le *errors.Error
	if !stderrors.As(err, &le) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	if le.Kind != kind {
		t.Fatalf("kind: got %s, want %s (%v)", le.Kind, kind, err)
	}
}

func TestRunGen(t *testing.T) {
	in := writeTemp(t, "game.go", gameSrc)
	out := filepath.Join(t.TempDir(), "game_layout.go")

	if err := runGen([]string{"-in", in, "-o", out, "-pkg", "gen"}, nil); err != nil {
		t.Fatalf("gen: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	src := string(data)
	for _, want := range []string{
		"// Code generated by memlayout from game.go. DO NOT EDIT.",
		"package gen",
		"type Player struct",
		"structs.HostLayout",
		"unsafe.Sizeof(*new(Vec3))",
		"unsafe.Offsetof(Player{}.Name)",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("missing %q in:\n%s", want, src)
		}
	}

	var buf bytes.Buffer
	if err := runGen([]string{"-in", in, "-no-checks"}, &buf); err != nil {
		t.Fatalf("gen: %v", err)
	}
	if strings.Contains(buf.String(), "Offsetof") {
		t.Errorf("-no-checks must omit assertions:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "package game") {
		t.Errorf("package defaults to the input's:\n%s", buf.String())
	}
}

func TestRunPlan(t *testing.T) {
	in := writeTemp(t, "game.go", gameSrc)

	var buf bytes.Buffer
	err := runPlan([]string{"-in", in, "-format", "json", "-arch", "amd64", "-sizes", "Vec3=12"}, &buf)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	var r report.Report
	if err := j.Unmarshal(buf.Bytes(), &r); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if r.Arch != "amd64" || len(r.Structs) != 1 {
		t.Fatalf("report: %+v", r)
	}
	st := r.Structs[0]
	if st.Name != "Player" || st.Size == nil || *st.Size != 0x38 || st.Error != "" {
		t.Fatalf("struct: %+v", st)
	}
	wantPad := []uint64{0x10, 0xc, 0}
	for i, f := range st.Fields {
		if f.Padding == nil || *f.Padding != wantPad[i] {
			t.Errorf("%s padding: got %v, want %#x", f.Name, f.Padding, wantPad[i])
		}
	}

	buf.Reset()
	if err := runPlan([]string{"-in", in, "-format", "yaml"}, &buf); err != nil {
		t.Fatalf("plan yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "name: Player") {
		t.Errorf("yaml: %s", buf.String())
	}

	buf.Reset()
	if err := runPlan([]string{"-in", in}, &buf); err != nil {
		t.Fatalf("plan table: %v", err)
	}
	for _, want := range []string{"Player", "Health", "0x10", "Vec3"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRunInspect_NoTerminal(t *testing.T) {
	in := writeTemp(t, "game.go", gameSrc)

	var buf bytes.Buffer
	if err := runInspect([]string{"-in", in, "-sizes", "Vec3=12"}, &buf); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(buf.String(), "Player") || !strings.Contains(buf.String(), "0x38") {
		t.Errorf("expected table output:\n%s", buf.String())
	}
}

func TestErrors(t *testing.T) {
	in := writeTemp(t, "game.go", gameSrc)

	tests := []struct {
		name string
		run  func() error
		kind errors.Kind
	}{
		{"missing_in", func() error { return runGen(nil, nil) }, errors.KindInvalidInput},
		{"bad_ordering", func() error { return runGen([]string{"-in", in, "-order", "random"}, nil) }, errors.KindInvalidInput},
		{"bad_format", func() error { return runPlan([]string{"-in", in, "-format", "xml"}, &bytes.Buffer{}) }, errors.KindNotFound},
		{"bad_arch", func() error { return runPlan([]string{"-in", in, "-arch", "vax"}, nil) }, errors.KindNotFound},
		{"bad_sizes", func() error { return runPlan([]string{"-in", in, "-sizes", "Vec3"}, nil) }, errors.KindInvalidInput},
		{"bad_extension", func() error { return runGen([]string{"-in", writeTemp(t, "game.txt", "")}, nil) }, errors.KindUnsupported},
		{"missing_json", func() error { return runWIT(nil, nil) }, errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantKind(t, tt.run(), tt.kind)
		})
	}
}

func TestPrintError_Diagnostics(t *testing.T) {
	in := writeTemp(t, "game.yaml", badYAML)

	err := runGen([]string{"-in", in}, &bytes.Buffer{})
	var diags *errors.Diagnostics
	if !stderrors.As(err, &diags) || len(diags.Items) != 1 {
		t.Fatalf("expected one diagnostic, got %v", err)
	}

	var buf bytes.Buffer
	printError(&buf, err)
	if !strings.HasPrefix(buf.String(), "Bad: ") || !strings.Contains(buf.String(), string(errors.KindFieldOverlap)) {
		t.Errorf("output: %q", buf.String())
	}
}

func TestSetupVerbose(t *testing.T) {
	t.Cleanup(func() {
		layout.SetLogger(zap.NewNop())
		gosrc.SetLogger(zap.NewNop())
		layoutfile.SetLogger(zap.NewNop())
		bind.SetLogger(zap.NewNop())
	})

	if err := (&common{verbose: true}).setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	loggers := map[string]*zap.Logger{
		"layout":     layout.Logger(),
		"gosrc":      gosrc.Logger(),
		"layoutfile": layoutfile.Logger(),
		"bind":       bind.Logger(),
	}
	for name, l := range loggers {
		if !l.Core().Enabled(zap.DebugLevel) {
			t.Errorf("%s: debug logging not enabled by -v", name)
		}
	}
}

func TestParseOrdering(t *testing.T) {
	for _, s := range []string{"zero-size-aware", "strict", "non-decreasing"} {
		o, ok := parseOrdering(s)
		if !ok || o.String() != s {
			t.Errorf("%s: got %v, %v", s, o, ok)
		}
	}
	if _, ok := parseOrdering("random"); ok {
		t.Error("unknown ordering accepted")
	}
}
