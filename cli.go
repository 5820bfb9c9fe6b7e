package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/decaf-tools/minidecaf/rvsim"
)

func showUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `minidecaf - compiles MiniDecaf to RISC-V assembly

Usage:
    minidecaf [-v] [-run] <input.c> <output.s>

Examples:
    minidecaf prog.c prog.s
    minidecaf -run tests/fact.c /tmp/fact.s

Flags:
`)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// run is the whole command line tool; main only maps its result to an exit
// status.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("minidecaf", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	verbose := fs.Bool("v", false, "Show the syntax tree and a compilation summary")
	execute := fs.Bool("run", false, "Run the compiled program in the built-in simulator")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			showUsage(stdout, fs)
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		showUsage(stderr, fs)
		return 1
	}

	if fs.NArg() != 2 {
		fmt.Fprintf(stderr, "Error: expected an input and an output file\n\n")
		showUsage(stderr, fs)
		return 1
	}
	input, output := fs.Arg(0), fs.Arg(1)

	if *verbose {
		fmt.Fprintf(stderr, "Compiling %s to %s...\n", input, output)
	}

	src, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading file %s: %v\n", input, err)
		return 1
	}

	asm, err := Compile(src, Options{Verbose: *verbose, Log: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", input, err)
		return 1
	}

	if err := os.WriteFile(output, []byte(asm), 0644); err != nil {
		fmt.Fprintf(stderr, "Error writing file %s: %v\n", output, err)
		return 1
	}

	if *execute {
		code, err := rvsim.Run(asm, 0)
		if err != nil {
			fmt.Fprintf(stderr, "Execution failed: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "exit status: %d\n", code)
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
