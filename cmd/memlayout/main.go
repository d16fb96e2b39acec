package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/memlayout/bind"
	"github.com/wippyai/memlayout/emit/gocode"
	"github.com/wippyai/memlayout/emit/report"
	"github.com/wippyai/memlayout/errors"
	"github.com/wippyai/memlayout/frontend/gosrc"
	"github.com/wippyai/memlayout/frontend/layoutfile"
	"github.com/wippyai/memlayout/frontend/witrec"
	"github.com/wippyai/memlayout/internal/gotype"
	"github.com/wippyai/memlayout/layout"
)

const usage = `Usage: memlayout <command> [flags]

Commands:
  gen      resolve declarations and write Go structs
  plan     print resolved layouts (json, yaml or table)
  wit      generate Go structs for WIT records (wasm-tools --json output)
  inspect  browse resolved layouts interactively

Run "memlayout <command> -h" for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "gen":
		err = runGen(args, os.Stdout)
	case "plan":
		err = runPlan(args, os.Stdout)
	case "wit":
		err = runWIT(args, os.Stdout)
	case "inspect":
		err = runInspect(args, os.Stdout)
	case "-h", "-help", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(1)
	}

	if err != nil {
		if !stderrors.Is(err, flag.ErrHelp) {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// printError writes one diagnostic per line.
func printError(w io.Writer, err error) {
	var diags *errors.Diagnostics
	if stderrors.As(err, &diags) {
		for _, d := range diags.Items {
			fmt.Fprintf(w, "%s: %v\n", d.Struct, d.Err)
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// common holds the flags shared by every command.
type common struct {
	in      string
	order   string
	verbose bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.in, "in", "", "Input: Go file, Go package directory, or .yaml/.yml/.json layout file")
	fs.StringVar(&c.order, "order", layout.OrderZeroSizeAware.String(), "Offset ordering: zero-size-aware, strict or non-decreasing")
	fs.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *common) options() (layout.Options, error) {
	opts := layout.DefaultOptions()
	ord, ok := parseOrdering(c.order)
	if !ok {
		return opts, errors.InvalidInput(errors.PhaseValidate, "", fmt.Sprintf("unknown ordering %q", c.order))
	}
	opts.Ordering = ord
	return opts, nil
}

func (c *common) setup() error {
	if !c.verbose {
		return nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	layout.SetLogger(logger.Named("layout"))
	gosrc.SetLogger(logger.Named("gosrc"))
	layoutfile.SetLogger(logger.Named("layoutfile"))
	bind.SetLogger(logger.Named("bind"))
	return nil
}

func parseOrdering(s string) (layout.Ordering, bool) {
	for _, o := range []layout.Ordering{layout.OrderZeroSizeAware, layout.OrderStrict, layout.OrderNonDecreasing} {
		if o.String() == s {
			return o, true
		}
	}
	return 0, false
}

func parseFlags(fs *flag.FlagSet, c *common, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.in == "" {
		fs.Usage()
		return errors.InvalidInput(errors.PhaseParse, "", "-in is required")
	}
	return c.setup()
}

func runGen(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	var c common
	c.register(fs)
	out := fs.String("o", "", "Output file (default stdout)")
	pkg := fs.String("pkg", "", "Package name of the generated file (default: the input's)")
	noChecks := fs.Bool("no-checks", false, "Omit compile-time offset and size assertions")
	if err := parseFlags(fs, &c, args); err != nil {
		return err
	}

	opts, err := c.options()
	if err != nil {
		return err
	}
	u, err := load(c.in)
	if err != nil {
		return err
	}
	plans, err := layout.ResolveAll(u.inputs, opts)
	if err != nil {
		return err
	}

	file := gocode.File{Package: u.pkg, Source: u.source, Plans: plans}
	if *pkg != "" {
		file.Package = *pkg
	}
	ropts := gocode.DefaultOptions()
	ropts.Assertions = !*noChecks
	src, err := gocode.Render(file, ropts)
	if err != nil {
		return err
	}
	return writeOutput(*out, src, stdout)
}

func runPlan(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	var c common
	c.register(fs)
	format := fs.String("format", "table", "Output format: json, yaml or table")
	ev := registerEval(fs)
	if err := parseFlags(fs, &c, args); err != nil {
		return err
	}

	opts, err := c.options()
	if err != nil {
		return err
	}
	sizer, err := ev.sizer()
	if err != nil {
		return err
	}
	u, err := load(c.in)
	if err != nil {
		return err
	}
	plans, err := layout.ResolveAll(u.inputs, opts)
	if err != nil {
		return err
	}

	r := report.Build(u.source, plans, sizer)
	r.Arch = ev.arch
	if *format == "table" {
		_, err := io.WriteString(stdout, renderTables(r))
		return err
	}
	return report.Write(stdout, r, report.Format(*format))
}

func runWIT(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("wit", flag.ContinueOnError)
	jsonPath := fs.String("json", "", "Resolved WIT JSON (wasm-tools component wit --json)")
	out := fs.String("o", "", "Output file (default stdout)")
	pkg := fs.String("pkg", "bindings", "Package name of the generated file")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jsonPath == "" {
		fs.Usage()
		return errors.InvalidInput(errors.PhaseParse, "", "-json is required")
	}
	if err := (&common{verbose: *verbose}).setup(); err != nil {
		return err
	}

	f, err := os.Open(*jsonPath)
	if err != nil {
		return errors.ParseFailed(*jsonPath, err)
	}
	defer f.Close()
	res, err := witrec.LoadJSON(f)
	if err != nil {
		return err
	}
	inputs, err := witrec.Inputs(res)
	if err != nil {
		return err
	}
	plans, err := layout.ResolveAll(inputs, layout.DefaultOptions())
	if err != nil {
		return err
	}

	src, err := gocode.Render(gocode.File{Package: *pkg, Source: *jsonPath, Plans: plans}, gocode.DefaultOptions())
	if err != nil {
		return err
	}
	return writeOutput(*out, src, stdout)
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.PhaseEmit, errors.KindInvalidInput, err, "write "+path)
	}
	return nil
}

// evalFlags selects how deferred sizes are evaluated for previews.
type evalFlags struct {
	arch  string
	sizes string
}

func registerEval(fs *flag.FlagSet) *evalFlags {
	ev := &evalFlags{}
	fs.StringVar(&ev.arch, "arch", "", "Evaluate deferred sizes for this GOARCH (e.g. amd64, 386, wasm)")
	fs.StringVar(&ev.sizes, "sizes", "", "Extra type sizes for evaluation (Vec3=12,Name=8)")
	return ev
}

func (ev *evalFlags) sizer() (layout.Sizer, error) {
	var chain sizerChain
	if ev.sizes != "" {
		table := layout.SizeTable{}
		for _, kv := range strings.Split(ev.sizes, ",") {
			name, val, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, errors.InvalidInput(errors.PhaseEvaluate, "", fmt.Sprintf("malformed size %q, want Type=N", kv))
			}
			n, err := layout.ParseOffset(val)
			if err != nil {
				return nil, errors.MalformedSize("", []string{strings.TrimSpace(name)}, val, err)
			}
			table[strings.TrimSpace(name)] = n
		}
		chain = append(chain, table)
	}
	if ev.arch != "" {
		p, ok := gotype.NewPlatform(ev.arch)
		if !ok {
			return nil, errors.NotFound(errors.PhaseEvaluate, "architecture", ev.arch)
		}
		chain = append(chain, p)
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

// sizerChain asks each sizer in turn.
type sizerChain []layout.Sizer

func (c sizerChain) SizeOf(expr string) (uint64, bool) {
	for _, s := range c {
		if n, ok := s.SizeOf(expr); ok {
			return n, true
		}
	}
	return 0, false
}
