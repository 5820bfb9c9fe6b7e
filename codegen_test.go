package main

import (
	"strings"
	"testing"

	"github.com/decaf-tools/minidecaf/rvsim"
	"github.com/nalgeon/be"
)

func runProgram(t *testing.T, src string) int32 {
	t.Helper()
	asm, err := Compile([]byte(src), Options{})
	be.Err(t, err, nil)
	code, err := rvsim.Run(asm, 0)
	be.Err(t, err, nil)
	return code
}

func TestCodeGenPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int32
	}{
		{"precedence", "int main() { return 3 + 4 * 2; }", 11},
		{"falls off the end", "int main() { }", 0},
		{"shadowing", "int main() { int x = 1; { int x = 2; } return x; }", 1},
		{"initialized global", "int g = 5; int main() { g = g + 1; return g; }", 6},
		{"zeroed global array", "int a[3]; int main() { a[1] = 4; return a[0] + a[1]; }", 4},
		{"store through pointer", "int main() { int x = 3; int *p = &x; *p = 9; return x; }", 9},
		{"pointer difference", "int main() { int a[4]; int *p = &a[0]; int *q = p + 3; return q - p; }", 3},
		{"two dimensional array", "int main() { int a[2][3]; a[1][2] = 7; a[0][0] = 1; return a[1][2] + a[0][0]; }", 8},
		{
			"break and continue",
			"int main() { int s = 0; for (int i = 0; i < 10; i = i + 1) { if (i % 2) continue; if (i > 6) break; s = s + i; } return s; }",
			12,
		},
		{"do while", "int main() { int n = 0; do n = n + 1; while (n < 5); return n; }", 5},
		{"ternary", "int main() { int a = 2; return a > 1 ? a * 10 : 0 - 1; }", 20},
		{"recursion", "int fib(int n) { return n < 2 ? n : fib(n - 1) + fib(n - 2); } int main() { return fib(10); }", 55},
		{"forward declaration", "int sq(int x); int main() { return sq(4); } int sq(int x) { return x * x; }", 16},
		{"division by zero", "int main() { int z = 0; return 7 / z; }", -1},
		{"remainder by zero", "int main() { int z = 0; return 7 % z; }", 7},
		{"logical and evaluates both sides", "int g; int set() { g = 1; return 1; } int main() { 0 && set(); return g; }", 1},
		{"chained assignment", "int main() { int a; int b; a = b = 4; return a + b; }", 8},
		{"pointer to pointer", "int main() { int x = 1; int *p = &x; int **pp = &p; **pp = 42; return x; }", 42},
		{"array larger than the immediate range", "int main() { int a[1000]; a[999] = 5; return a[999]; }", 5},
		{"pointer parameter", "int inc(int *p) { *p = *p + 1; return 0; } int main() { int x = 9; inc(&x); return x; }", 10},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			be.Equal(t, runProgram(t, test.src), test.want)
		})
	}
}

func TestCodeGenStackArguments(t *testing.T) {
	src := `
int f(int a, int b, int c, int d, int e, int g, int h, int i, int j, int k) {
	return j * 100 + k * 10 + a;
}
int main() { return f(1, 2, 3, 4, 5, 6, 7, 8, 9, 4); }`
	be.Equal(t, runProgram(t, src), int32(941))
}

func TestCodeGenErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{"undeclared", "int main() { return x; }", ErrUndeclared},
		{"signature mismatch", "int f(int a); int f(int *a) { return 0; } int main() { return 0; }", ErrSignatureMismatch},
		{"missing main", "int f() { return 0; }", ErrMissingMain},
		{"declared main only", "int main();", ErrMissingMain},
		{"break outside loop", "int main() { break; }", ErrBreakOutsideLoop},
		{"continue outside loop", "int main() { continue; }", ErrContinueOutsideLoop},
		{"argument count", "int f(int a) { return a; } int main() { return f(); }", ErrArgumentCount},
		{"calling a variable", "int main() { int f = 1; return f(); }", ErrNotAFunction},
		{"assigning to rvalue", "int main() { 1 = 2; }", ErrNotAnLValue},
		{"address of rvalue", "int main() { int *p = &1; }", ErrInvalidReference},
		{"dereferencing int", "int main() { int x; return *x; }", ErrInvalidDereference},
		{"literal too large", "int main() { return 2147483648; }", ErrIntegerTooLarge},
		{"duplicate local", "int main() { int x; int x; }", ErrDuplicateDeclaration},
		{"redefinition", "int main() { return 0; } int main() { return 1; }", ErrDuplicateDefinition},
		{"global named like function", "int f(); int f;", ErrNameConflict},
		{"zero length array", "int main() { int a[0]; }", ErrInvalidArrayLength},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			asm, err := Compile([]byte(test.src), Options{})
			be.Err(t, err, test.kind)
			be.Equal(t, asm, "")
		})
	}
}

func TestCodeGenErrorPosition(t *testing.T) {
	_, err := Compile([]byte("int main() { break; }"), Options{})
	be.Equal(t, err.Error(), "error at 1:13: break statement not within a loop")
}

func TestDeclaredOnlyFunctionEmitsNothing(t *testing.T) {
	asm, err := Compile([]byte("int f(int x); int main() { return 0; }"), Options{})
	be.Err(t, err, nil)
	be.True(t, strings.Contains(asm, "main:"))
	be.True(t, !strings.Contains(asm, "f:"))
}

func TestGenerate(t *testing.T) {
	src := []byte("int g; int main() { return g; }")
	prog, err := ParseProgram(src)
	be.Err(t, err, nil)

	cg, err := Generate(prog)
	be.Err(t, err, nil)
	asm := cg.Assembly()
	want, err := Compile(src, Options{})
	be.Err(t, err, nil)
	be.Equal(t, asm, want)
	be.True(t, strings.HasSuffix(asm, "\t.comm g, 4, 4\n"))
	be.Equal(t, cg.reg.DefinedCount(), 1)
	be.Equal(t, cg.reg.GlobalCount(), 1)
}

func TestGenerateError(t *testing.T) {
	prog, err := ParseProgram([]byte("int main() { return y; }"))
	be.Err(t, err, nil)

	cg, err := Generate(prog)
	be.Err(t, err, ErrUndeclared)
	be.True(t, cg == nil)
}
