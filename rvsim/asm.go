// Package rvsim assembles and runs the RV32IM text subset produced by the
// compiler, so generated programs can be executed without a cross toolchain.
package rvsim

import (
	"fmt"
	"strconv"
	"strings"
)

// Memory layout. Text lives outside data memory; a text address is
// TextBase plus four times the instruction index.
const (
	TextBase = 0x00010000
	DataBase = 0x00100000
	MemSize  = 0x00400000
	// Returning to HaltAddr stops the machine.
	HaltAddr = 0
)

type Instr struct {
	Op     string
	Rd     int
	Rs1    int
	Rs2    int
	Imm    int32
	Target string // branch, jump or call label
	Line   int
}

// Program is an assembled compilation unit.
type Program struct {
	Text    []Instr
	Data    []byte // image loaded at DataBase, .comm space included
	Symbols map[string]uint32
	Globals map[string]bool
}

// Entry returns the address of main.
func (p *Program) Entry() (uint32, error) {
	addr, ok := p.Symbols["main"]
	if !ok || addr < TextBase || addr >= TextBase+4*uint32(len(p.Text)) {
		return 0, fmt.Errorf("no main function in text section")
	}
	return addr, nil
}

type section int

const (
	sectionText section = iota
	sectionData
)

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

type commSym struct {
	name        string
	size, align uint32
	lineNo      int
}

type Assembler struct {
	labels map[string]uint32
}

func NewAssembler() *Assembler {
	return &Assembler{labels: make(map[string]uint32)}
}

func Assemble(code string) (*Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*Program, error) {
	lines := make([]parsedLine, 0)
	for i, raw := range strings.Split(code, "\n") {
		p, err := parseLine(raw, i+1)
		if err != nil {
			return nil, err
		}
		lines = append(lines, p)
	}

	dataSize, err := a.pass1(lines)
	if err != nil {
		return nil, err
	}
	return a.pass2(lines, dataSize)
}

// pass1 assigns an address to every label and .comm symbol and returns the
// size of the data image.
func (a *Assembler) pass1(lines []parsedLine) (uint32, error) {
	sec := sectionText
	var textCount, dataOff uint32
	var comms []commSym

	define := func(name string, addr uint32, lineNo int) error {
		if _, exists := a.labels[name]; exists {
			return fmt.Errorf("duplicate label '%s' on line %d", name, lineNo)
		}
		a.labels[name] = addr
		return nil
	}

	for _, p := range lines {
		for _, lbl := range p.labels {
			addr := TextBase + 4*textCount
			if sec == sectionData {
				addr = DataBase + dataOff
			}
			if err := define(lbl, addr, p.lineNo); err != nil {
				return 0, err
			}
		}

		switch p.mnemonic {
		case "":
		case ".text":
			sec = sectionText
		case ".data":
			sec = sectionData
		case ".globl", ".global":
		case ".align":
			n, err := parseDirectiveInt(p, 0)
			if err != nil {
				return 0, err
			}
			if sec == sectionData {
				dataOff = alignUp(dataOff, 1<<n)
			}
		case ".word":
			if sec != sectionData {
				return 0, fmt.Errorf(".word outside the data section on line %d", p.lineNo)
			}
			dataOff += 4 * uint32(len(p.operands))
		case ".comm":
			if len(p.operands) != 3 {
				return 0, fmt.Errorf(".comm expects 3 operands on line %d", p.lineNo)
			}
			size, err := parseDirectiveInt(p, 1)
			if err != nil {
				return 0, err
			}
			align, err := parseDirectiveInt(p, 2)
			if err != nil {
				return 0, err
			}
			comms = append(comms, commSym{p.operands[0], size, align, p.lineNo})
		default:
			if strings.HasPrefix(p.mnemonic, ".") {
				return 0, fmt.Errorf("unknown directive on line %d: %s", p.lineNo, p.mnemonic)
			}
			if sec != sectionText {
				return 0, fmt.Errorf("instruction outside the text section on line %d: %s", p.lineNo, p.mnemonic)
			}
			if _, ok := instrForms[p.mnemonic]; !ok {
				return 0, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
			}
			textCount++
		}
	}

	for _, c := range comms {
		if c.align > 1 {
			dataOff = alignUp(dataOff, c.align)
		}
		if err := define(c.name, DataBase+dataOff, c.lineNo); err != nil {
			return 0, err
		}
		dataOff += c.size
	}
	if DataBase+dataOff > MemSize {
		return 0, fmt.Errorf("data section too large (%d bytes)", dataOff)
	}
	return dataOff, nil
}

func (a *Assembler) pass2(lines []parsedLine, dataSize uint32) (*Program, error) {
	prog := &Program{
		Data:    make([]byte, dataSize),
		Symbols: a.labels,
		Globals: make(map[string]bool),
	}
	sec := sectionText
	var dataOff uint32

	for _, p := range lines {
		ops := p.operands
		switch p.mnemonic {
		case "":
			continue
		case ".text":
			sec = sectionText
			continue
		case ".data":
			sec = sectionData
			continue
		case ".globl", ".global":
			for _, name := range ops {
				prog.Globals[name] = true
			}
			continue
		case ".comm":
			prog.Globals[ops[0]] = true
			continue
		case ".align":
			n, _ := parseDirectiveInt(p, 0)
			if sec == sectionData {
				dataOff = alignUp(dataOff, 1<<n)
			}
			continue
		case ".word":
			for _, op := range ops {
				v, err := a.parseImmediate(op, p.lineNo)
				if err != nil {
					return nil, err
				}
				putWord(prog.Data[dataOff:], uint32(v))
				dataOff += 4
			}
			continue
		}

		instr, err := a.encode(p)
		if err != nil {
			return nil, err
		}
		prog.Text = append(prog.Text, instr)
	}
	return prog, nil
}

type operandKind int

const (
	opReg operandKind = iota
	opImm
	opMem // off(reg)
	opLabel
)

// instrForms lists the operand shape of every supported mnemonic.
var instrForms = map[string][]operandKind{
	"li":   {opReg, opImm},
	"lui":  {opReg, opImm},
	"addi": {opReg, opReg, opImm},
	"add":  {opReg, opReg, opReg},
	"sub":  {opReg, opReg, opReg},
	"mul":  {opReg, opReg, opReg},
	"div":  {opReg, opReg, opReg},
	"rem":  {opReg, opReg, opReg},
	"and":  {opReg, opReg, opReg},
	"or":   {opReg, opReg, opReg},
	"xor":  {opReg, opReg, opReg},
	"slt":  {opReg, opReg, opReg},
	"sgt":  {opReg, opReg, opReg},
	"seqz": {opReg, opReg},
	"snez": {opReg, opReg},
	"neg":  {opReg, opReg},
	"not":  {opReg, opReg},
	"mv":   {opReg, opReg},
	"lw":   {opReg, opMem},
	"sw":   {opReg, opMem},
	"beqz": {opReg, opLabel},
	"bnez": {opReg, opLabel},
	"j":    {opLabel},
	"call": {opLabel},
	"ret":  {},
}

func (a *Assembler) encode(p parsedLine) (Instr, error) {
	form := instrForms[p.mnemonic]
	if len(p.operands) != len(form) {
		return Instr{}, fmt.Errorf("%s expects %d operands on line %d", p.mnemonic, len(form), p.lineNo)
	}
	in := Instr{Op: p.mnemonic, Line: p.lineNo}
	regs := make([]int, 0, 3)
	for i, kind := range form {
		op := p.operands[i]
		switch kind {
		case opReg:
			r, err := parseRegister(op, p.lineNo)
			if err != nil {
				return Instr{}, err
			}
			regs = append(regs, r)
		case opImm:
			v, err := a.parseImmediate(op, p.lineNo)
			if err != nil {
				return Instr{}, err
			}
			in.Imm = v
		case opMem:
			off, base, err := a.parseMem(op, p.lineNo)
			if err != nil {
				return Instr{}, err
			}
			in.Imm = off
			regs = append(regs, base)
		case opLabel:
			if _, ok := a.labels[op]; !ok {
				return Instr{}, fmt.Errorf("undefined label '%s' on line %d", op, p.lineNo)
			}
			in.Target = op
		}
	}

	if lo, hi, ok := immRange(p.mnemonic); ok && (in.Imm < lo || in.Imm > hi) {
		return Instr{}, fmt.Errorf("immediate %d out of range for %s on line %d", in.Imm, p.mnemonic, p.lineNo)
	}

	switch p.mnemonic {
	case "sw":
		// sw rs2, off(rs1)
		in.Rs2, in.Rs1 = regs[0], regs[1]
	case "beqz", "bnez":
		in.Rs1 = regs[0]
	default:
		if len(regs) > 0 {
			in.Rd = regs[0]
		}
		if len(regs) > 1 {
			in.Rs1 = regs[1]
		}
		if len(regs) > 2 {
			in.Rs2 = regs[2]
		}
	}
	return in, nil
}

// Bounds of the immediate fields. I and S type instructions carry 12 signed
// bits and lui carries 20 bits; li is a pseudo-instruction taking any word.
const (
	MinImm12 = -2048
	MaxImm12 = 2047
)

func immRange(mnemonic string) (lo, hi int32, ok bool) {
	switch mnemonic {
	case "addi", "lw", "sw":
		return MinImm12, MaxImm12, true
	case "lui":
		return -(1 << 19), 1<<20 - 1, true
	}
	return 0, 0, false
}

var regNames = map[string]int{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7, "s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// Register numbers used by the machine.
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegFP   = 8
	RegA0   = 10
)

func parseRegister(s string, lineNo int) (int, error) {
	if r, ok := regNames[s]; ok {
		return r, nil
	}
	if strings.HasPrefix(s, "x") {
		if n, err := strconv.Atoi(s[1:]); err == nil && n >= 0 && n < 32 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("invalid register on line %d: %s", lineNo, s)
}

// parseImmediate accepts integers and the %hi(sym) / %lo(sym) relocations.
func (a *Assembler) parseImmediate(s string, lineNo int) (int32, error) {
	for _, reloc := range []string{"%hi(", "%lo("} {
		if strings.HasPrefix(s, reloc) && strings.HasSuffix(s, ")") {
			name := s[len(reloc) : len(s)-1]
			addr, ok := a.labels[name]
			if !ok {
				return 0, fmt.Errorf("undefined symbol '%s' on line %d", name, lineNo)
			}
			hi, lo := splitAddr(addr)
			if reloc == "%hi(" {
				return hi, nil
			}
			return lo, nil
		}
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil || v < -(1<<31) || v > (1<<32)-1 {
		return 0, fmt.Errorf("invalid immediate on line %d: %s", lineNo, s)
	}
	return int32(v), nil
}

func (a *Assembler) parseMem(s string, lineNo int) (int32, int, error) {
	open := strings.Index(s, "(")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return 0, 0, fmt.Errorf("invalid memory operand on line %d: %s", lineNo, s)
	}
	var off int32
	if open > 0 {
		v, err := a.parseImmediate(s[:open], lineNo)
		if err != nil {
			return 0, 0, err
		}
		off = v
	}
	base, err := parseRegister(s[open+1:len(s)-1], lineNo)
	return off, base, err
}

// splitAddr splits addr so that hi<<12 + sign-extended lo == addr.
func splitAddr(addr uint32) (hi, lo int32) {
	hi = int32((addr + 0x800) >> 12)
	lo = int32(addr) - hi<<12
	return hi, lo
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}
	line := raw
	if idx := strings.Index(line, "#"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)

	for line != "" {
		fields := strings.Fields(line)
		head := fields[0]
		colon := strings.Index(head, ":")
		if colon < 0 {
			break
		}
		if colon == 0 {
			return p, fmt.Errorf("empty label on line %d", lineNo)
		}
		p.labels = append(p.labels, head[:colon])
		line = strings.TrimSpace(line[strings.Index(line, ":")+1:])
	}
	if line == "" {
		return p, nil
	}

	mnemonic, rest, _ := strings.Cut(line, " ")
	if tab := strings.IndexByte(mnemonic, '\t'); tab >= 0 {
		mnemonic, rest = line[:tab], line[tab+1:]
	}
	p.mnemonic = strings.ToLower(mnemonic)
	rest = strings.TrimSpace(rest)
	if rest != "" {
		for _, op := range strings.Split(rest, ",") {
			p.operands = append(p.operands, strings.TrimSpace(op))
		}
	}
	return p, nil
}

func parseDirectiveInt(p parsedLine, i int) (uint32, error) {
	if i >= len(p.operands) {
		return 0, fmt.Errorf("%s expects an operand on line %d", p.mnemonic, p.lineNo)
	}
	v, err := strconv.ParseUint(p.operands[i], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s operand on line %d: %s", p.mnemonic, p.lineNo, p.operands[i])
	}
	return uint32(v), nil
}

func alignUp(n, align uint32) uint32 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

func putWord(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getWord(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
