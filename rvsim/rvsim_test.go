package rvsim

import (
	"errors"
	"math"
	"testing"

	"github.com/nalgeon/be"
)

func TestRunExitCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int32
	}{
		{
			name: "return constant",
			code: `
	.text
	.global main
main:
	li a0, 42
	ret
`,
			want: 42,
		},
		{
			name: "arithmetic",
			code: `
main:
	li t0, 7
	li t1, 3
	mul t0, t0, t1   # 21
	addi t0, t0, -1
	li t1, 6
	rem a0, t0, t1
	ret
`,
			want: 2,
		},
		{
			name: "comparisons",
			code: `
main:
	li t0, 2
	li t1, 5
	slt t2, t0, t1
	sgt a0, t0, t1
	add a0, a0, t2
	seqz t2, zero
	add a0, a0, t2
	snez t2, t1
	add a0, a0, t2
	ret
`,
			want: 3,
		},
		{
			name: "bitwise",
			code: `
main:
	li t0, 12
	li t1, 10
	and t2, t0, t1
	or a0, t0, t1
	xor a0, a0, t2
	not t0, zero
	neg t0, t0
	add a0, a0, t0
	ret
`,
			want: 7,
		},
		{
			name: "loop with branches",
			code: `
main:
	li t0, 0
	li t1, 10
.loop:
	beqz t1, .done
	add t0, t0, t1
	addi t1, t1, -1
	j .loop
.done:
	mv a0, t0
	ret
`,
			want: 55,
		},
		{
			name: "stack and call",
			code: `
	.text
	.global main
main:
	addi sp, sp, -8
	sw ra, 4(sp)
	sw fp, 0(sp)
	mv fp, sp
	li a0, 20
	call double
	lw ra, 4(sp)
	lw fp, 0(sp)
	addi sp, sp, 8
	ret
double:
	add a0, a0, a0
	ret
`,
			want: 40,
		},
		{
			name: "initialized and common globals",
			code: `
	.data
	.global x
	.align 4
x:
	.word 5
	.text
	.global main
main:
	lui t0, %hi(x)
	addi t0, t0, %lo(x)
	lw t1, 0(t0)
	lui t0, %hi(y)
	addi t0, t0, %lo(y)
	sw t1, 4(t0)
	lw a0, 4(t0)
	lw t2, 0(t0)
	add a0, a0, t2
	ret
	.comm y, 8, 4
`,
			want: 5,
		},
		{
			name: "register x0 ignores writes",
			code: `
main:
	li zero, 9
	mv a0, x0
	ret
`,
			want: 0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Run(test.code, 0)
			be.Err(t, err, nil)
			be.Equal(t, got, test.want)
		})
	}
}

func TestDivisionEdgeCases(t *testing.T) {
	be.Equal(t, divide(7, 0), int32(-1))
	be.Equal(t, remainder(7, 0), int32(7))
	be.Equal(t, divide(math.MinInt32, -1), int32(math.MinInt32))
	be.Equal(t, remainder(math.MinInt32, -1), int32(0))
	be.Equal(t, divide(-7, 2), int32(-3))
	be.Equal(t, remainder(-7, 2), int32(-1))
}

func TestSplitAddr(t *testing.T) {
	for _, addr := range []uint32{DataBase, DataBase + 0x7ff, DataBase + 0x800, DataBase + 0xffc, 0x12345678} {
		hi, lo := splitAddr(addr)
		be.True(t, lo >= -2048 && lo < 2048)
		be.Equal(t, uint32(hi<<12+lo), addr)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unknown instruction", "main:\n\tjalr t0\n", "unknown instruction on line 2"},
		{"undefined label", "main:\n\tj nowhere\n", "undefined label 'nowhere'"},
		{"duplicate label", "main:\nmain:\n\tret\n", "duplicate label 'main'"},
		{"bad register", "main:\n\tmv q9, a0\n", "invalid register on line 2"},
		{"operand count", "main:\n\tadd a0, a1\n", "add expects 3 operands"},
		{"undefined symbol", "main:\n\tlui t0, %hi(g)\n", "undefined symbol 'g'"},
		{"unknown directive", "\t.section .rodata\n", "unknown directive"},
		{"word in text", "\t.text\n\t.word 1\n", ".word outside the data section"},
		{"addi immediate too small", "main:\n\taddi sp, sp, -4000\n", "immediate -4000 out of range for addi on line 2"},
		{"addi immediate too large", "main:\n\taddi t0, fp, 2048\n", "out of range for addi"},
		{"load offset", "main:\n\tlw t0, -2052(fp)\n", "out of range for lw"},
		{"store offset", "main:\n\tsw t0, 4096(sp)\n", "out of range for sw"},
		{"lui immediate", "main:\n\tlui t0, 1048576\n", "out of range for lui"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Assemble(test.code)
			be.Err(t, err, test.want)
		})
	}
}

func TestImmediateBounds(t *testing.T) {
	code, err := Run("main:\n\taddi a0, zero, -2048\n\taddi a0, a0, 2047\n\tret\n", 0)
	be.Err(t, err, nil)
	be.Equal(t, code, int32(-1))

	code, err = Run("main:\n\tli t2, -4000\n\tadd t0, sp, t2\n\tli a0, 9\n\tsw a0, 0(t0)\n\tlw a0, -2048(sp)\n\tlw a0, 0(t0)\n\tret\n", 0)
	be.Err(t, err, nil)
	be.Equal(t, code, int32(9))
}

func TestRuntimeErrors(t *testing.T) {
	t.Run("missing main", func(t *testing.T) {
		_, err := Run("f:\n\tret\n", 0)
		be.Err(t, err, "no main function")
	})
	t.Run("misaligned load", func(t *testing.T) {
		_, err := Run("main:\n\tlw a0, 2(sp)\n\tret\n", 0)
		be.Err(t, err, "misaligned access")
	})
	t.Run("out of range store", func(t *testing.T) {
		_, err := Run("main:\n\tsw a0, 0(sp)\n\tret\n", 0)
		be.Err(t, err, "out of range")
	})
	t.Run("step limit", func(t *testing.T) {
		_, err := Run("main:\n\tj main\n", 100)
		be.True(t, errors.Is(err, ErrStepLimit))
	})
}

func TestParseLine(t *testing.T) {
	p, err := parseLine(".exit.main:\tmv sp, fp # epilogue", 3)
	be.Err(t, err, nil)
	be.Equal(t, p.labels, []string{".exit.main"})
	be.Equal(t, p.mnemonic, "mv")
	be.Equal(t, p.operands, []string{"sp", "fp"})

	p, err = parseLine("\tsw ra, 4(sp)", 1)
	be.Err(t, err, nil)
	be.Equal(t, p.mnemonic, "sw")
	be.Equal(t, p.operands, []string{"ra", "4(sp)"})

	p, err = parseLine("# only a comment", 1)
	be.Err(t, err, nil)
	be.Equal(t, p.mnemonic, "")
}

func TestMachineStep(t *testing.T) {
	prog, err := Assemble("main:\n\tli a0, 1\n\taddi a0, a0, 1\n\tret\n")
	be.Err(t, err, nil)
	m, err := NewMachine(prog)
	be.Err(t, err, nil)

	be.Err(t, m.Step(), nil)
	be.Equal(t, m.Regs[RegA0], int32(1))
	be.Err(t, m.Step(), nil)
	be.Equal(t, m.Regs[RegA0], int32(2))
	be.Err(t, m.Step(), nil)
	be.Equal(t, m.PC, uint32(HaltAddr))
	be.True(t, !m.Halted)
	be.Err(t, m.Step(), nil)
	be.True(t, m.Halted)
	be.Equal(t, m.Steps, 3)
	be.Equal(t, m.ExitCode(), int32(2))
}
