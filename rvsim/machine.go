package rvsim

import (
	"errors"
	"fmt"
	"math"
)

// DefaultStepLimit bounds Run when the caller passes no limit.
const DefaultStepLimit = 10_000_000

var ErrStepLimit = errors.New("step limit exceeded")

// Machine is a minimal RV32IM hart with flat little-endian memory. The
// stack starts at the top of memory and grows down.
type Machine struct {
	Regs   [32]int32
	PC     uint32
	Mem    []byte
	Halted bool
	Steps  int

	prog *Program
}

func NewMachine(prog *Program) (*Machine, error) {
	entry, err := prog.Entry()
	if err != nil {
		return nil, err
	}
	m := &Machine{
		PC:   entry,
		Mem:  make([]byte, MemSize),
		prog: prog,
	}
	copy(m.Mem[DataBase:], prog.Data)
	m.Regs[RegSP] = MemSize
	m.Regs[RegRA] = HaltAddr
	return m, nil
}

// ExitCode is the value main returned, valid once the machine halted.
func (m *Machine) ExitCode() int32 {
	return m.Regs[RegA0]
}

func (m *Machine) set(rd int, v int32) {
	if rd != RegZero {
		m.Regs[rd] = v
	}
}

func (m *Machine) jump(label string) {
	m.PC = m.prog.Symbols[label]
}

func (m *Machine) addr(in Instr) (uint32, error) {
	addr := uint32(m.Regs[in.Rs1] + in.Imm)
	if addr%4 != 0 {
		return 0, fmt.Errorf("misaligned access to 0x%x on line %d", addr, in.Line)
	}
	if addr < DataBase || addr > MemSize-4 {
		return 0, fmt.Errorf("access out of range 0x%x on line %d", addr, in.Line)
	}
	return addr, nil
}

// Step executes one instruction.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	if m.PC == HaltAddr {
		m.Halted = true
		return nil
	}
	idx := (m.PC - TextBase) / 4
	if m.PC < TextBase || m.PC%4 != 0 || int(idx) >= len(m.prog.Text) {
		return fmt.Errorf("pc out of text section: 0x%x", m.PC)
	}
	in := m.prog.Text[idx]
	m.PC += 4
	m.Steps++

	rs1, rs2 := m.Regs[in.Rs1], m.Regs[in.Rs2]
	switch in.Op {
	case "li":
		m.set(in.Rd, in.Imm)
	case "lui":
		m.set(in.Rd, in.Imm<<12)
	case "addi":
		m.set(in.Rd, rs1+in.Imm)
	case "add":
		m.set(in.Rd, rs1+rs2)
	case "sub":
		m.set(in.Rd, rs1-rs2)
	case "mul":
		m.set(in.Rd, rs1*rs2)
	case "div":
		m.set(in.Rd, divide(rs1, rs2))
	case "rem":
		m.set(in.Rd, remainder(rs1, rs2))
	case "and":
		m.set(in.Rd, rs1&rs2)
	case "or":
		m.set(in.Rd, rs1|rs2)
	case "xor":
		m.set(in.Rd, rs1^rs2)
	case "slt":
		m.set(in.Rd, b2i(rs1 < rs2))
	case "sgt":
		m.set(in.Rd, b2i(rs1 > rs2))
	case "seqz":
		m.set(in.Rd, b2i(rs1 == 0))
	case "snez":
		m.set(in.Rd, b2i(rs1 != 0))
	case "neg":
		m.set(in.Rd, -rs1)
	case "not":
		m.set(in.Rd, ^rs1)
	case "mv":
		m.set(in.Rd, rs1)
	case "lw":
		addr, err := m.addr(in)
		if err != nil {
			return err
		}
		m.set(in.Rd, int32(getWord(m.Mem[addr:])))
	case "sw":
		addr, err := m.addr(in)
		if err != nil {
			return err
		}
		putWord(m.Mem[addr:], uint32(rs2))
	case "beqz":
		if rs1 == 0 {
			m.jump(in.Target)
		}
	case "bnez":
		if rs1 != 0 {
			m.jump(in.Target)
		}
	case "j":
		m.jump(in.Target)
	case "call":
		m.set(RegRA, int32(m.PC))
		m.jump(in.Target)
	case "ret":
		m.PC = uint32(m.Regs[RegRA])
	default:
		return fmt.Errorf("unknown instruction on line %d: %s", in.Line, in.Op)
	}
	return nil
}

// Run steps until main returns or maxSteps instructions have executed.
// A non-positive maxSteps means DefaultStepLimit.
func (m *Machine) Run(maxSteps int) (int32, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultStepLimit
	}
	for !m.Halted {
		if m.Steps >= maxSteps {
			return 0, fmt.Errorf("%w after %d instructions", ErrStepLimit, m.Steps)
		}
		if err := m.Step(); err != nil {
			return 0, err
		}
	}
	return m.ExitCode(), nil
}

// Run assembles code and executes it from main.
func Run(code string, maxSteps int) (int32, error) {
	prog, err := Assemble(code)
	if err != nil {
		return 0, err
	}
	m, err := NewMachine(prog)
	if err != nil {
		return 0, err
	}
	return m.Run(maxSteps)
}

// divide follows RISC-V: x/0 is -1 and MinInt32/-1 overflows to MinInt32.
func divide(a, b int32) int32 {
	switch {
	case b == 0:
		return -1
	case a == math.MinInt32 && b == -1:
		return a
	}
	return a / b
}

// remainder follows RISC-V: x%0 is x and MinInt32%-1 is 0.
func remainder(a, b int32) int32 {
	switch {
	case b == 0:
		return a
	case a == math.MinInt32 && b == -1:
		return 0
	}
	return a % b
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
