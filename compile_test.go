package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestCompileVerbose(t *testing.T) {
	var log bytes.Buffer
	asm, err := Compile([]byte("int g; int main() { return 0; }"), Options{Verbose: true, Log: &log})
	be.Err(t, err, nil)
	be.True(t, asm != "")

	out := log.String()
	be.True(t, strings.Contains(out, `AST: (program (global "g" "int") (func "main" "int" (params) (block (return 0))))`))
	be.True(t, strings.Contains(out, "Compiled 1 functions, 1 globals, "))
}

func TestCompileQuietWithoutLog(t *testing.T) {
	_, err := Compile([]byte("int main() { return 0; }"), Options{Verbose: true})
	be.Err(t, err, nil)
}

func TestCompileSyntaxError(t *testing.T) {
	var log bytes.Buffer
	asm, err := Compile([]byte("int main() { return 0 }"), Options{Verbose: true, Log: &log})
	be.Err(t, err, "syntax error at 1:22")
	be.Equal(t, asm, "")
	be.Equal(t, log.String(), "")
}

func TestCountInstructions(t *testing.T) {
	asm := "\t.text\n\t.global main\nmain:\n# push t0\n\tli a0, 0\n\tret\n"
	be.Equal(t, countInstructions(asm), 2)
}
