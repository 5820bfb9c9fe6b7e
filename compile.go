package main

import (
	"fmt"
	"io"
	"strings"
)

// Options configures a compilation.
type Options struct {
	// Verbose dumps the syntax tree and a summary to Log.
	Verbose bool
	Log     io.Writer
}

// Compile translates one MiniDecaf compilation unit into RISC-V assembly.
// On error no partial output is returned.
func Compile(src []byte, opts Options) (string, error) {
	prog, err := ParseProgram(src)
	if err != nil {
		return "", err
	}
	if opts.Verbose && opts.Log != nil {
		fmt.Fprintf(opts.Log, "AST: %s\n", ToSExpr(prog))
	}

	cg, err := Generate(prog)
	if err != nil {
		return "", err
	}
	asm := cg.Assembly()

	if opts.Verbose && opts.Log != nil {
		fmt.Fprintf(opts.Log, "Compiled %d functions, %d globals, %d instructions\n",
			cg.reg.DefinedCount(), cg.reg.GlobalCount(), countInstructions(asm))
	}
	return asm, nil
}

// countInstructions counts lines that are neither comments, labels nor
// directives.
func countInstructions(asm string) int {
	n := 0
	for _, line := range strings.Split(asm, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ".") || strings.HasSuffix(line, ":") {
			continue
		}
		n++
	}
	return n
}
