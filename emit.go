package main

import (
	"fmt"
	"strings"
)

// Emitter accumulates assembly text and models the operand stack: every
// evaluated expression leaves exactly one word on top of the memory stack.
type Emitter struct {
	lines []string
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

// Instr emits one indented instruction or directive.
func (e *Emitter) Instr(format string, args ...any) {
	e.lines = append(e.lines, "\t"+fmt.Sprintf(format, args...))
}

func (e *Emitter) Comment(format string, args ...any) {
	e.lines = append(e.lines, "# "+fmt.Sprintf(format, args...))
}

func (e *Emitter) Label(name string) {
	e.lines = append(e.lines, name+":")
}

// Reserve emits a placeholder line and returns its index for Patch.
func (e *Emitter) Reserve() int {
	e.lines = append(e.lines, "")
	return len(e.lines) - 1
}

// Patch fills a slot handed out by Reserve with whatever fill emits, which
// may be more than one line.
func (e *Emitter) Patch(slot int, fill func(e *Emitter)) {
	if slot < 0 || slot >= len(e.lines) || e.lines[slot] != "" {
		panic(fmt.Sprintf("Patch of slot %d that was not reserved", slot))
	}
	sub := NewEmitter()
	fill(sub)
	e.lines[slot] = strings.Join(sub.lines, "\n")
}

func (e *Emitter) Push(reg string) {
	e.Comment("push %s", reg)
	e.Instr("addi sp, sp, -%d", WordSize)
	e.Instr("sw %s, 0(sp)", reg)
}

func (e *Emitter) Pop(reg string) {
	e.Comment("pop %s", reg)
	e.Instr("lw %s, 0(sp)", reg)
	e.Instr("addi sp, sp, %d", WordSize)
}

// Discard drops the top of the operand stack.
func (e *Emitter) Discard() {
	e.Comment("discard")
	e.Instr("addi sp, sp, %d", WordSize)
}

func (e *Emitter) PushImm(v int32) {
	e.Instr("li t0, %d", v)
	e.Push("t0")
}

// Signed range of the 12-bit immediate in addi, lw and sw.
const (
	minImm12 = -2048
	maxImm12 = 2047
)

func fitsImm12(v int) bool {
	return v >= minImm12 && v <= maxImm12
}

// AddImm emits rd = rs + v. Values outside the immediate range are built in
// t2 first.
func (e *Emitter) AddImm(rd, rs string, v int) {
	if fitsImm12(v) {
		e.Instr("addi %s, %s, %d", rd, rs, v)
		return
	}
	e.Instr("li t2, %d", v)
	e.Instr("add %s, %s, t2", rd, rs)
}

// AllocStack moves sp down by size bytes.
func (e *Emitter) AllocStack(size int) {
	if fitsImm12(-size) {
		e.Instr("addi sp, sp, -%d", size)
		return
	}
	e.Instr("li t2, %d", size)
	e.Instr("sub sp, sp, t2")
}

func (e *Emitter) memOp(op, reg string, offset int, base string) {
	if fitsImm12(offset) {
		e.Instr("%s %s, %d(%s)", op, reg, offset, base)
		return
	}
	e.Instr("li t2, %d", offset)
	e.Instr("add t2, %s, t2", base)
	e.Instr("%s %s, 0(t2)", op, reg)
}

// LoadWord loads the word at base+offset into reg. It clobbers t2 when the
// offset needs more than an immediate.
func (e *Emitter) LoadWord(reg string, offset int, base string) {
	e.memOp("lw", reg, offset, base)
}

// StoreWord stores reg at base+offset, clobbering t2 like LoadWord.
func (e *Emitter) StoreWord(reg string, offset int, base string) {
	e.memOp("sw", reg, offset, base)
}

// PushLocalAddr pushes fp+offset.
func (e *Emitter) PushLocalAddr(offset int) {
	e.AddImm("t0", "fp", offset)
	e.Push("t0")
}

// PushGlobalAddr materializes a symbol address in two halves since a full
// address does not fit one immediate.
func (e *Emitter) PushGlobalAddr(name string) {
	e.Instr("lui t0, %%hi(%s)", name)
	e.Instr("addi t0, t0, %%lo(%s)", name)
	e.Push("t0")
}

// Load replaces the address on top of the stack with the word it points to.
func (e *Emitter) Load() {
	e.Pop("t0")
	e.Instr("lw t0, 0(t0)")
	e.Push("t0")
}

// Store pops a value and an address beneath it, stores, and pushes the
// value back as the expression's result.
func (e *Emitter) Store() {
	e.Pop("t1")
	e.Pop("t0")
	e.Instr("sw t1, 0(t0)")
	e.Push("t1")
}

var unaryInstrs = map[string]string{
	"-": "neg",
	"!": "seqz",
	"~": "not",
}

func (e *Emitter) Unary(op string) {
	instr, ok := unaryInstrs[op]
	if !ok {
		panic("unsupported unary operator: " + op)
	}
	e.Pop("t0")
	e.Instr("%s t0, t0", instr)
	e.Push("t0")
}

// Binary pops the right then the left operand, combines them into t0 and
// pushes the result. Comparisons and logical operators produce 0 or 1;
// && and || evaluate both operands.
func (e *Emitter) Binary(op string) {
	e.Pop("t1")
	e.Pop("t0")
	switch op {
	case "+":
		e.Instr("add t0, t0, t1")
	case "-":
		e.Instr("sub t0, t0, t1")
	case "*":
		e.Instr("mul t0, t0, t1")
	case "/":
		e.Instr("div t0, t0, t1")
	case "%":
		e.Instr("rem t0, t0, t1")
	case "<":
		e.Instr("slt t0, t0, t1")
	case ">":
		e.Instr("sgt t0, t0, t1")
	case "<=":
		e.Instr("sgt t0, t0, t1")
		e.Instr("seqz t0, t0")
	case ">=":
		e.Instr("slt t0, t0, t1")
		e.Instr("seqz t0, t0")
	case "==":
		e.Instr("sub t0, t0, t1")
		e.Instr("seqz t0, t0")
	case "!=":
		e.Instr("sub t0, t0, t1")
		e.Instr("snez t0, t0")
	case "&&":
		e.Instr("snez t0, t0")
		e.Instr("snez t1, t1")
		e.Instr("and t0, t0, t1")
	case "||":
		e.Instr("or t0, t0, t1")
		e.Instr("snez t0, t0")
	default:
		panic("unsupported binary operator: " + op)
	}
	e.Push("t0")
}

// Scale multiplies the word depth slots below the top (0 is the top) by n,
// for pointer arithmetic.
func (e *Emitter) Scale(depth, n int) {
	e.Comment("scale by %d", n)
	e.Instr("lw t0, %d(sp)", depth*WordSize)
	e.Instr("li t1, %d", n)
	e.Instr("mul t0, t0, t1")
	e.Instr("sw t0, %d(sp)", depth*WordSize)
}

// DivideTop divides the top of the stack by n, for pointer differences.
func (e *Emitter) DivideTop(n int) {
	e.Pop("t0")
	e.Instr("li t1, %d", n)
	e.Instr("div t0, t0, t1")
	e.Push("t0")
}

func (e *Emitter) String() string {
	var b strings.Builder
	for _, l := range e.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
