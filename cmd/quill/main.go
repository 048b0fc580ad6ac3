// Quill CLI - compiles and runs arithmetic expressions on the quill VM
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/manifest"
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/server"
	"github.com/chazu/quill/vm"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

// Exit codes follow sysexits.h.
const (
	exitOK      = 0
	exitUsage   = 64
	exitCompile = 65
	exitRuntime = 70
	exitIO      = 74
)

var log = commonlog.GetLogger("quill.cli")

// options holds the parsed command line.
type options struct {
	verbosity   int
	trace       bool
	disassemble bool
	noColor     bool
	compileOnly bool
	output      string
	expr        string
	hasExpr     bool
	lsp         bool
	help        bool
	paths       []string
}

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: quill [-v] [-t] [-d] [-C] [-c] [-o out] [-e expr] [-l] [path]\n\n")
	fmt.Fprintf(w, "Compiles and runs a single arithmetic expression. Paths ending in .qbc\n")
	fmt.Fprintf(w, "are loaded as precompiled bytecode. With no path, starts a REPL.\n\n")
	fmt.Fprintf(w, "Options:\n")
	fmt.Fprintf(w, "  -v       increase log verbosity (repeatable)\n")
	fmt.Fprintf(w, "  -t       trace every instruction to stderr\n")
	fmt.Fprintf(w, "  -d       print the disassembled chunk before running\n")
	fmt.Fprintf(w, "  -C       disable colored diagnostics\n")
	fmt.Fprintf(w, "  -c       compile to bytecode instead of running\n")
	fmt.Fprintf(w, "  -o out   bytecode output path (with -c; default <path>.qbc)\n")
	fmt.Fprintf(w, "  -e expr  evaluate expr instead of reading a file\n")
	fmt.Fprintf(w, "  -l       run the language server on stdio\n")
	fmt.Fprintf(w, "  -h       show this help\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  quill -e '1 + 2 * 3'         # prints 7\n")
	fmt.Fprintf(w, "  quill -c -o calc.qbc calc.ql # compile only\n")
	fmt.Fprintf(w, "  quill -t calc.qbc            # run bytecode with a trace\n")
}

// parseArgs parses argv (including the program name).
func parseArgs(argv []string) (*options, error) {
	opts, optind, err := getopt.Getopts(argv, "vtdCco:e:lh")
	if err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		switch opt.Option {
		case 'v':
			o.verbosity++
		case 't':
			o.trace = true
		case 'd':
			o.disassemble = true
		case 'C':
			o.noColor = true
		case 'c':
			o.compileOnly = true
		case 'o':
			o.output = opt.Value
		case 'e':
			o.expr = opt.Value
			o.hasExpr = true
		case 'l':
			o.lsp = true
		case 'h':
			o.help = true
		}
	}
	o.paths = argv[optind:]

	switch {
	case len(o.paths) > 1:
		return nil, fmt.Errorf("expected at most one path, got %d", len(o.paths))
	case o.hasExpr && len(o.paths) > 0:
		return nil, fmt.Errorf("-e and a path are mutually exclusive")
	case o.output != "" && !o.compileOnly:
		return nil, fmt.Errorf("-o requires -c")
	case o.compileOnly && !o.hasExpr && len(o.paths) == 0:
		return nil, fmt.Errorf("-c requires a path or -e")
	case o.compileOnly && o.hasExpr && o.output == "":
		return nil, fmt.Errorf("-c with -e requires -o")
	}
	return o, nil
}

// settings is the effective configuration: quill.toml overridden by flags.
type settings struct {
	trace       bool
	disassemble bool
	color       bool
	verbosity   int
	logPath     *string
}

func resolveSettings(m *manifest.Manifest, o *options) settings {
	if m == nil {
		m = manifest.Default()
	}
	return settings{
		trace:       m.Run.Trace || o.trace,
		disassemble: m.Run.Disassemble || o.disassemble,
		color:       m.Run.Color && !o.noColor,
		verbosity:   m.Log.Verbosity + o.verbosity,
		logPath:     m.LogPath(),
	}
}

// run is main without the process exit, so tests can drive it.
func run(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseArgs(argv)
	if err != nil {
		fmt.Fprintf(stderr, "quill: %s\n\n", err)
		usage(stderr)
		return exitUsage
	}
	if o.help {
		usage(stdout)
		return exitOK
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(stderr, "quill: %s\n", err)
		return exitUsage
	}
	cfg := resolveSettings(m, o)
	commonlog.Configure(cfg.verbosity, cfg.logPath)

	if o.lsp {
		log.Info("starting language server on stdio")
		if err := server.NewLSP(version).Run(); err != nil {
			fmt.Fprintf(stderr, "quill: language server: %s\n", err)
			return exitIO
		}
		return exitOK
	}

	d := &driver{
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		diag:   newDiagWriter(stderr, cfg.color),
	}

	switch {
	case o.hasExpr && o.compileOnly:
		return d.compileToFile(o.expr, o.output)
	case o.hasExpr:
		return d.runSource("expr", o.expr)
	case len(o.paths) == 0:
		return d.repl(stdin)
	}

	path := o.paths[0]
	if filepath.Ext(path) == ".qbc" {
		if o.compileOnly {
			fmt.Fprintf(stderr, "quill: %s is already compiled\n", path)
			return exitUsage
		}
		return d.runBytecodeFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "quill: %s\n", err)
		return exitIO
	}
	if o.compileOnly {
		out := o.output
		if out == "" {
			out = strings.TrimSuffix(path, filepath.Ext(path)) + ".qbc"
		}
		return d.compileToFile(string(data), out)
	}
	return d.runSource(filepath.Base(path), string(data))
}

// driver executes one invocation's work with the effective settings.
type driver struct {
	cfg    settings
	stdout io.Writer
	stderr io.Writer
	diag   io.Writer // colored view of stderr for diagnostics
}

func (d *driver) newVM() *vm.VM {
	opts := []vm.Option{vm.WithOutput(d.stdout), vm.WithErrorOutput(d.diag)}
	if d.cfg.trace {
		opts = append(opts, vm.WithTracer(vm.NewTextTracer(d.stderr)))
	}
	return vm.NewVM(opts...)
}

func (d *driver) compile(source string) (*bytecode.Chunk, int) {
	chunk, err := compiler.Compile(source, compiler.WithDiagnostics(d.diag))
	if err != nil {
		log.Debugf("compile failed: %d diagnostic(s)", len(compiler.Diagnostics(err)))
		return nil, exitCompile
	}
	return chunk, exitOK
}

func (d *driver) runSource(name, source string) int {
	chunk, code := d.compile(source)
	if chunk == nil {
		return code
	}
	return d.execute(d.newVM(), name, chunk)
}

func (d *driver) execute(machine *vm.VM, name string, chunk *bytecode.Chunk) int {
	if d.cfg.disassemble {
		fmt.Fprint(d.stdout, chunk.DisassembleWithName(name))
	}
	if _, err := machine.Execute(chunk); err != nil {
		return exitRuntime
	}
	return exitOK
}

func (d *driver) compileToFile(source, out string) int {
	chunk, code := d.compile(source)
	if chunk == nil {
		return code
	}
	if d.cfg.disassemble {
		fmt.Fprint(d.stdout, chunk.DisassembleWithName(filepath.Base(out)))
	}

	data, err := bytecode.Marshal(chunk)
	if err != nil {
		fmt.Fprintf(d.stderr, "quill: %s\n", err)
		return exitCompile
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		fmt.Fprintf(d.stderr, "quill: %s\n", err)
		return exitIO
	}
	log.Infof("wrote %s (%d bytes)", out, len(data))
	return exitOK
}

func (d *driver) runBytecodeFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(d.stderr, "quill: %s\n", err)
		return exitIO
	}
	chunk, err := bytecode.Unmarshal(data)
	if err != nil {
		fmt.Fprintf(d.diag, "quill: %s: %s\n", path, err)
		return exitCompile
	}
	return d.execute(d.newVM(), filepath.Base(path), chunk)
}

// diagWriter colors everything written through it.
type diagWriter struct {
	w io.Writer
	c *color.Color
}

func newDiagWriter(w io.Writer, enabled bool) io.Writer {
	c := color.New(color.FgRed)
	if !enabled {
		c.DisableColor()
	}
	return &diagWriter{w: w, c: c}
}

func (dw *diagWriter) Write(p []byte) (int, error) {
	// Keep the trailing newline outside the escape sequence.
	text := strings.TrimSuffix(string(p), "\n")
	if _, err := dw.c.Fprint(dw.w, text); err != nil {
		return 0, err
	}
	if len(text) < len(p) {
		if _, err := io.WriteString(dw.w, "\n"); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
