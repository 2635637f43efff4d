// Command minicc is the compiler's entry point: it wires the lexer,
// parser, code generator, and (unless -S or --dump-ast is given) the external
// assembler/linker together.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/wholemars/minicc/internal/astjson"
	"github.com/wholemars/minicc/internal/codegen"
	"github.com/wholemars/minicc/internal/diag"
	"github.com/wholemars/minicc/internal/parser"
	"github.com/wholemars/minicc/internal/target"
)

var options struct {
	Output   string `short:"o" long:"output" description:"output path"`
	Assembly bool   `short:"S" description:"stop after assembly generation"`
	DumpAST  bool   `long:"dump-ast" description:"emit the parsed syntax tree as JSON and exit"`
	Verbose  bool   `short:"v" long:"verbose" description:"announce each pipeline phase"`
}

func main() {
	args, err := flags.Parse(&options)
	if err != nil {
		os.Exit(1)
	}
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: minicc INPUT [-o OUTPUT] [-S] [--dump-ast]")
		os.Exit(2)
	}
	input := args[0]

	src, err := os.ReadFile(input)
	if err != nil {
		diag.FatalIO("cannot read "+input, err)
	}

	diag.Phase(options.Verbose, "parse")
	prog, err := parser.ParseFile(string(src))
	if err != nil {
		diag.Fatal(err)
	}

	if options.DumpAST {
		out, err := astjson.Marshal(prog)
		if err != nil {
			diag.FatalIO("ast encoding", err)
		}
		writeOutput(options.Output, "", out)
		return
	}

	diag.Phase(options.Verbose, "codegen")
	tgt := target.Host()
	asm, err := codegen.Emit(prog, tgt)
	if err != nil {
		diag.Fatal(err)
	}

	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	if options.Assembly {
		writeOutput(options.Output, stem+".s", []byte(asm))
		return
	}

	asmPath := stem + ".s"
	if err := os.WriteFile(asmPath, []byte(asm), 0o644); err != nil {
		diag.FatalIO("write "+asmPath, err)
	}

	execPath := options.Output
	if execPath == "" {
		execPath = stem
	}

	diag.Phase(options.Verbose, "assemble+link")
	cmd := exec.Command("cc", "-o", execPath, asmPath, "-lc")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		diag.FatalIO("cc", err)
	}
}

// writeOutput writes data to explicit, falling back to fallback if
// explicit is empty, or to stdout if both are empty.
func writeOutput(explicit, fallback string, data []byte) {
	path := explicit
	if path == "" {
		path = fallback
	}
	if path == "" {
		fmt.Print(string(data))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		diag.FatalIO("write "+path, err)
	}
}
