package main

import (
	"fmt"
	"strings"
)

// CodeGen is a single pass over the syntax tree that type-checks each node
// and emits RISC-V assembly for it in the same visit. All state belongs to
// one compilation unit.
type CodeGen struct {
	out    *Emitter
	reg    *Registry
	labels *Labeler

	// Per-function state, reset by visitFuncDef.
	scopes  *ScopeStack
	frame   *Frame
	curFunc string
	curSig  FuncSignature
}

func NewCodeGen() *CodeGen {
	return &CodeGen{
		out:    NewEmitter(),
		reg:    NewRegistry(),
		labels: NewLabeler(),
		scopes: NewScopeStack(),
	}
}

// Generate runs the pass over a parsed program. Nothing is returned unless
// the whole unit is accepted.
func Generate(prog *ASTNode) (*CodeGen, error) {
	cg := NewCodeGen()
	if _, err := cg.visit(prog); err != nil {
		return nil, err
	}
	return cg, nil
}

// Assembly is the generated program text.
func (cg *CodeGen) Assembly() string {
	return cg.out.String()
}

// visit dispatches on node kind and returns the node's synthesized type.
func (cg *CodeGen) visit(node *ASTNode) (Type, error) {
	switch node.Kind {
	case NodeProgram:
		return cg.visitProgram(node)
	case NodeFuncDecl:
		return cg.visitFuncDecl(node)
	case NodeFuncDef:
		return cg.visitFuncDef(node)
	case NodeGlobal:
		return cg.visitGlobal(node)
	case NodeVar:
		return cg.visitLocal(node)
	case NodeBlock:
		return cg.visitBlock(node)
	case NodeExprStmt:
		return cg.visitExprStmt(node)
	case NodeReturn:
		return cg.visitReturn(node)
	case NodeIf:
		return cg.visitIf(node)
	case NodeWhile:
		return cg.visitWhile(node)
	case NodeFor:
		return cg.visitFor(node)
	case NodeDoWhile:
		return cg.visitDoWhile(node)
	case NodeBreak:
		target, err := cg.labels.BreakTarget()
		if err != nil {
			return NoType(), at(err, node.Pos)
		}
		cg.out.Comment("break")
		cg.out.Instr("j %s", target)
		return NoType(), nil
	case NodeContinue:
		target, err := cg.labels.ContinueTarget()
		if err != nil {
			return NoType(), at(err, node.Pos)
		}
		cg.out.Comment("continue")
		cg.out.Instr("j %s", target)
		return NoType(), nil
	case NodeAssign:
		return cg.visitAssign(node)
	case NodeTernary:
		return cg.visitTernary(node)
	case NodeBinary:
		return cg.visitBinary(node)
	case NodeUnary:
		return cg.visitUnary(node)
	case NodeCast:
		return cg.visitCast(node)
	case NodeCall:
		return cg.visitCall(node)
	case NodeIndex:
		return cg.visitIndex(node)
	case NodeInteger:
		return cg.visitInteger(node)
	case NodeIdent:
		return cg.visitIdent(node)
	}
	panic(fmt.Sprintf("unexpected node kind %s", node.Kind))
}

// rvalue visits an expression and, if it produced an lvalue, replaces the
// address on the stack with the value stored there.
func (cg *CodeGen) rvalue(node *ASTNode) (Type, error) {
	t, err := cg.visit(node)
	if err != nil {
		return t, err
	}
	if t.IsLValue() {
		cg.out.Comment("load %s", t)
		cg.out.Load()
		t = t.RValue()
	}
	return t, nil
}

// intOperand evaluates node as an rvalue that must be an int.
func (cg *CodeGen) intOperand(node *ASTNode, what string) error {
	t, err := cg.rvalue(node)
	if err != nil {
		return err
	}
	if !t.IsInt() {
		return semErr(ErrTypeMismatch, node.Pos, "%s must be int, got %s", what, t)
	}
	return nil
}

func (cg *CodeGen) visitProgram(node *ASTNode) (Type, error) {
	for _, item := range node.Children {
		if _, err := cg.visit(item); err != nil {
			return NoType(), err
		}
	}
	if err := cg.reg.CheckMain(); err != nil {
		return NoType(), err
	}
	for _, g := range cg.reg.UninitializedGlobals() {
		size, err := g.Type.Size()
		if err != nil {
			return NoType(), err
		}
		cg.out.Instr(".comm %s, %d, 4", g.Name, size)
	}
	return NoType(), nil
}

func (cg *CodeGen) signature(node *ASTNode) (FuncSignature, error) {
	ret, err := TypeFromSpec(node.Type)
	if err != nil {
		return FuncSignature{}, at(err, node.Pos)
	}
	sig := FuncSignature{Return: ret.RValue()}
	for _, param := range node.Children {
		t, err := TypeFromSpec(param.Type)
		if err != nil {
			return FuncSignature{}, at(err, param.Pos)
		}
		sig.Params = append(sig.Params, t)
	}
	return sig, nil
}

func (cg *CodeGen) visitFuncDecl(node *ASTNode) (Type, error) {
	sig, err := cg.signature(node)
	if err != nil {
		return NoType(), err
	}
	return NoType(), at(cg.reg.DeclareFunc(node.String, sig), node.Pos)
}

func (cg *CodeGen) visitFuncDef(node *ASTNode) (Type, error) {
	sig, err := cg.signature(node)
	if err != nil {
		return NoType(), err
	}
	if err := cg.reg.DefineFunc(node.String, sig); err != nil {
		return NoType(), at(err, node.Pos)
	}

	name := node.String
	cg.curFunc = name
	cg.curSig = sig
	cg.frame = NewFrame(name)
	cg.scopes = NewScopeStack()

	cg.out.Instr(".text")
	cg.out.Instr(".global %s", name)
	cg.out.Label(name)
	cg.out.Comment("prologue")
	cg.out.Instr("addi sp, sp, -%d", savedRegBytes)
	cg.out.Instr("sw ra, %d(sp)", WordSize)
	cg.out.Instr("sw fp, 0(sp)")
	cg.out.Instr("mv fp, sp")
	frameSlot := cg.out.Reserve()

	cg.scopes.EnterScope()
	for i, param := range node.Children {
		sym, err := cg.frame.DeclareParam(cg.scopes, i, param.String, sig.Params[i])
		if err != nil {
			return NoType(), at(err, param.Pos)
		}
		if i < NumArgRegs {
			cg.out.StoreWord(argRegs[i], sym.Offset, "fp")
		}
	}

	// The body shares the parameters' scope.
	for _, item := range node.Body.Children {
		if _, err := cg.visit(item); err != nil {
			return NoType(), err
		}
	}
	cg.scopes.ExitScope()

	cg.out.Comment("return 0 when control reaches the end")
	cg.out.Instr("li a0, 0")

	cg.out.Patch(frameSlot, func(e *Emitter) { e.AllocStack(cg.frame.Size()) })

	cg.out.Label(ExitLabel(name))
	cg.out.Comment("epilogue")
	cg.out.Instr("mv sp, fp")
	cg.out.Instr("lw ra, %d(sp)", WordSize)
	cg.out.Instr("lw fp, 0(sp)")
	cg.out.Instr("addi sp, sp, %d", savedRegBytes)
	cg.out.Instr("ret")

	cg.frame = nil
	cg.curFunc = ""
	return NoType(), nil
}

func (cg *CodeGen) visitGlobal(node *ASTNode) (Type, error) {
	t, err := TypeFromSpec(node.Type)
	if err != nil {
		return NoType(), at(err, node.Pos)
	}
	if len(node.Children) == 0 {
		_, err := cg.reg.DeclareGlobal(node.String, t)
		return NoType(), at(err, node.Pos)
	}

	init := node.Children[0]
	if !t.IsInt() {
		return NoType(), semErr(ErrTypeMismatch, init.Pos, "cannot initialize %s with an integer", t)
	}
	v, err := parseIntLiteral(init)
	if err != nil {
		return NoType(), err
	}
	if _, err := cg.reg.InitGlobal(node.String, t, v); err != nil {
		return NoType(), at(err, node.Pos)
	}
	cg.out.Instr(".data")
	cg.out.Instr(".global %s", node.String)
	cg.out.Instr(".align 4")
	cg.out.Label(node.String)
	cg.out.Instr(".word %d", v)
	return NoType(), nil
}

func (cg *CodeGen) visitLocal(node *ASTNode) (Type, error) {
	t, err := TypeFromSpec(node.Type)
	if err != nil {
		return NoType(), at(err, node.Pos)
	}
	sym, err := cg.frame.DeclareLocal(cg.scopes, node.String, t)
	if err != nil {
		return NoType(), at(err, node.Pos)
	}
	if len(node.Children) == 0 {
		return NoType(), nil
	}

	init := node.Children[0]
	if !t.IsScalar() {
		return NoType(), semErr(ErrTypeMismatch, init.Pos, "array '%s' cannot have an initializer", node.String)
	}
	cg.out.Comment("initialize %s", sym)
	it, err := cg.rvalue(init)
	if err != nil {
		return NoType(), err
	}
	if !it.SameShape(t) {
		return NoType(), semErr(ErrTypeMismatch, init.Pos, "cannot initialize %s with %s", t, it)
	}
	cg.out.Pop("t0")
	cg.out.StoreWord("t0", sym.Offset, "fp")
	return NoType(), nil
}

func (cg *CodeGen) visitBlock(node *ASTNode) (Type, error) {
	cg.scopes.EnterScope()
	defer cg.scopes.ExitScope()
	for _, item := range node.Children {
		if _, err := cg.visit(item); err != nil {
			return NoType(), err
		}
	}
	return NoType(), nil
}

func (cg *CodeGen) visitExprStmt(node *ASTNode) (Type, error) {
	if len(node.Children) == 0 {
		return NoType(), nil
	}
	if _, err := cg.visit(node.Children[0]); err != nil {
		return NoType(), err
	}
	cg.out.Discard()
	return NoType(), nil
}

func (cg *CodeGen) visitReturn(node *ASTNode) (Type, error) {
	t, err := cg.rvalue(node.Children[0])
	if err != nil {
		return NoType(), err
	}
	if !t.SameShape(cg.curSig.Return) {
		return NoType(), semErr(ErrTypeMismatch, node.Pos, "function '%s' returns %s, got %s", cg.curFunc, cg.curSig.Return, t)
	}
	cg.out.Comment("return")
	cg.out.Pop("a0")
	cg.out.Instr("j %s", ExitLabel(cg.curFunc))
	return NoType(), nil
}

func (cg *CodeGen) visitIf(node *ASTNode) (Type, error) {
	if err := cg.intOperand(node.Children[0], "condition"); err != nil {
		return NoType(), err
	}
	id := cg.labels.NewCond()
	cg.out.Comment("if %d", id)
	cg.out.Pop("t0")
	cg.out.Instr("beqz t0, %s", ElseLabel(id))
	if _, err := cg.visit(node.Children[1]); err != nil {
		return NoType(), err
	}
	cg.out.Instr("j %s", AfterCondLabel(id))
	cg.out.Label(ElseLabel(id))
	if len(node.Children) > 2 {
		if _, err := cg.visit(node.Children[2]); err != nil {
			return NoType(), err
		}
	}
	cg.out.Label(AfterCondLabel(id))
	return NoType(), nil
}

// loopBody visits a loop body with id as the break/continue target.
func (cg *CodeGen) loopBody(id int, body *ASTNode) error {
	cg.labels.EnterLoop(id)
	defer cg.labels.ExitLoop()
	_, err := cg.visit(body)
	return err
}

func (cg *CodeGen) visitWhile(node *ASTNode) (Type, error) {
	id := cg.labels.NewLoop()
	cg.out.Comment("while %d", id)
	cg.out.Label(BeforeLoopLabel(id))
	if err := cg.intOperand(node.Children[0], "condition"); err != nil {
		return NoType(), err
	}
	cg.out.Pop("t0")
	cg.out.Instr("beqz t0, %s", AfterLoopLabel(id))
	if err := cg.loopBody(id, node.Children[1]); err != nil {
		return NoType(), err
	}
	cg.out.Label(ContinueLoopLabel(id))
	cg.out.Instr("j %s", BeforeLoopLabel(id))
	cg.out.Label(AfterLoopLabel(id))
	return NoType(), nil
}

func (cg *CodeGen) visitFor(node *ASTNode) (Type, error) {
	init, cond, update, body := node.Children[0], node.Children[1], node.Children[2], node.Children[3]

	// A declaration in the header is scoped to the loop.
	cg.scopes.EnterScope()
	defer cg.scopes.ExitScope()

	if init != nil {
		if _, err := cg.visit(init); err != nil {
			return NoType(), err
		}
	}
	id := cg.labels.NewLoop()
	cg.out.Comment("for %d", id)
	cg.out.Label(BeforeLoopLabel(id))
	if cond != nil {
		if err := cg.intOperand(cond, "condition"); err != nil {
			return NoType(), err
		}
		cg.out.Pop("t0")
		cg.out.Instr("beqz t0, %s", AfterLoopLabel(id))
	}
	if err := cg.loopBody(id, body); err != nil {
		return NoType(), err
	}
	cg.out.Label(ContinueLoopLabel(id))
	if update != nil {
		if _, err := cg.visit(update); err != nil {
			return NoType(), err
		}
		cg.out.Discard()
	}
	cg.out.Instr("j %s", BeforeLoopLabel(id))
	cg.out.Label(AfterLoopLabel(id))
	return NoType(), nil
}

func (cg *CodeGen) visitDoWhile(node *ASTNode) (Type, error) {
	id := cg.labels.NewLoop()
	cg.out.Comment("do-while %d", id)
	cg.out.Label(BeforeLoopLabel(id))
	if err := cg.loopBody(id, node.Children[0]); err != nil {
		return NoType(), err
	}
	cg.out.Label(ContinueLoopLabel(id))
	if err := cg.intOperand(node.Children[1], "condition"); err != nil {
		return NoType(), err
	}
	cg.out.Pop("t0")
	cg.out.Instr("bnez t0, %s", BeforeLoopLabel(id))
	cg.out.Label(AfterLoopLabel(id))
	return NoType(), nil
}

func (cg *CodeGen) visitAssign(node *ASTNode) (Type, error) {
	lhs, rhs := node.Children[0], node.Children[1]
	lt, err := cg.visit(lhs)
	if err != nil {
		return NoType(), err
	}
	if !lt.IsLValue() {
		return NoType(), semErr(ErrNotAnLValue, lhs.Pos, "cannot assign to %s %s", lt.Cat, lt)
	}
	rt, err := cg.rvalue(rhs)
	if err != nil {
		return NoType(), err
	}
	if !rt.SameShape(lt) {
		return NoType(), semErr(ErrTypeMismatch, rhs.Pos, "cannot assign %s to %s", rt, lt.RValue())
	}
	cg.out.Comment("assign")
	cg.out.Store()
	return lt.RValue(), nil
}

func (cg *CodeGen) visitTernary(node *ASTNode) (Type, error) {
	if err := cg.intOperand(node.Children[0], "condition"); err != nil {
		return NoType(), err
	}
	id := cg.labels.NewCond()
	cg.out.Comment("ternary %d", id)
	cg.out.Pop("t0")
	cg.out.Instr("beqz t0, %s", ElseLabel(id))
	a, err := cg.rvalue(node.Children[1])
	if err != nil {
		return NoType(), err
	}
	cg.out.Instr("j %s", AfterCondLabel(id))
	cg.out.Label(ElseLabel(id))
	b, err := cg.rvalue(node.Children[2])
	if err != nil {
		return NoType(), err
	}
	cg.out.Label(AfterCondLabel(id))
	if !a.SameShape(b) {
		return NoType(), semErr(ErrTypeMismatch, node.Children[2].Pos, "ternary branches differ: %s and %s", a, b)
	}
	return a, nil
}

func (cg *CodeGen) visitBinary(node *ASTNode) (Type, error) {
	lhs, rhs := node.Children[0], node.Children[1]
	lt, err := cg.rvalue(lhs)
	if err != nil {
		return NoType(), err
	}
	rt, err := cg.rvalue(rhs)
	if err != nil {
		return NoType(), err
	}
	mismatch := func() error {
		return semErr(ErrTypeMismatch, node.Pos, "invalid operands to '%s': %s and %s", node.Op, lt, rt)
	}

	switch node.Op {
	case "+":
		switch {
		case lt.IsInt() && rt.IsInt():
		case lt.IsPointer() && rt.IsInt():
			cg.out.Scale(0, WordSize)
		case lt.IsInt() && rt.IsPointer():
			cg.out.Scale(1, WordSize)
		default:
			return NoType(), mismatch()
		}
		cg.out.Comment("add %s %s", lt, rt)
		cg.out.Binary("+")
		if lt.IsPointer() {
			return lt, nil
		}
		return rt, nil

	case "-":
		switch {
		case lt.IsInt() && rt.IsInt():
			cg.out.Binary("-")
		case lt.IsPointer() && rt.IsInt():
			cg.out.Scale(0, WordSize)
			cg.out.Binary("-")
			return lt, nil
		case lt.IsPointer() && lt.Equal(rt):
			cg.out.Binary("-")
			cg.out.DivideTop(WordSize)
		default:
			return NoType(), mismatch()
		}
		return IntType(RValue), nil

	case "==", "!=":
		if !lt.IsScalar() || !lt.Equal(rt) {
			return NoType(), mismatch()
		}

	default:
		if !lt.IsInt() || !rt.IsInt() {
			return NoType(), mismatch()
		}
	}
	cg.out.Comment("%s", node.Op)
	cg.out.Binary(node.Op)
	return IntType(RValue), nil
}

func (cg *CodeGen) visitUnary(node *ASTNode) (Type, error) {
	operand := node.Children[0]
	switch node.Op {
	case "&":
		t, err := cg.visit(operand)
		if err != nil {
			return NoType(), err
		}
		// The operand's address is already on the stack.
		ref, err := t.Referenced()
		return ref, at(err, node.Pos)

	case "*":
		t, err := cg.rvalue(operand)
		if err != nil {
			return NoType(), err
		}
		// The pointer value is the address of the result.
		deref, err := t.Dereferenced()
		return deref, at(err, node.Pos)
	}

	if err := cg.intOperand(operand, "operand of '"+node.Op+"'"); err != nil {
		return NoType(), err
	}
	cg.out.Comment("%s int", node.Op)
	cg.out.Unary(node.Op)
	return IntType(RValue), nil
}

func (cg *CodeGen) visitCast(node *ASTNode) (Type, error) {
	t, err := cg.visit(node.Children[0])
	if err != nil {
		return NoType(), err
	}
	dst, err := TypeFromSpec(node.Type)
	if err != nil {
		return NoType(), at(err, node.Pos)
	}
	if t.IsNone() {
		return NoType(), semErr(ErrInvalidCast, node.Pos, "cannot cast %s to %s", t, dst)
	}
	if t.IsArray() {
		return dst.RValue(), nil
	}
	res, err := dst.ValueCast(t.Cat)
	return res, at(err, node.Pos)
}

func (cg *CodeGen) visitIndex(node *ASTNode) (Type, error) {
	base, index := node.Children[0], node.Children[1]
	bt, err := cg.rvalue(base)
	if err != nil {
		return NoType(), err
	}
	et, err := bt.Indexed()
	if err != nil {
		return NoType(), at(err, base.Pos)
	}
	if err := cg.intOperand(index, "array index"); err != nil {
		return NoType(), err
	}
	size := WordSize
	if bt.IsArray() {
		if size, err = bt.Elem.Size(); err != nil {
			return NoType(), at(err, node.Pos)
		}
	}
	cg.out.Comment("index %s", bt)
	cg.out.Scale(0, size)
	cg.out.Binary("+")
	return et, nil
}

// visitCall evaluates the arguments left to right onto the stack, moves the
// first eight into a0-a7, and reorders the rest so the ninth argument sits
// at 0(sp) when the callee starts. The caller pops every argument slot
// afterwards.
func (cg *CodeGen) visitCall(node *ASTNode) (Type, error) {
	name := node.String
	if _, shadowed := cg.scopes.Lookup(name); shadowed {
		return NoType(), semErr(ErrNotAFunction, node.Pos, "'%s' is a variable, not a function", name)
	}
	sig, ok := cg.reg.LookupFunc(name)
	if !ok {
		if _, isGlobal := cg.reg.LookupGlobal(name); isGlobal {
			return NoType(), semErr(ErrNotAFunction, node.Pos, "'%s' is a variable, not a function", name)
		}
		return NoType(), semErr(ErrUndeclared, node.Pos, "call to undeclared function '%s'", name)
	}
	n := len(node.Children)
	if n != len(sig.Params) {
		return NoType(), semErr(ErrArgumentCount, node.Pos, "function '%s' takes %d arguments, got %d", name, len(sig.Params), n)
	}

	for i, arg := range node.Children {
		argT, err := cg.rvalue(arg)
		if err != nil {
			return NoType(), err
		}
		if !argT.SameShape(sig.Params[i]) {
			return NoType(), semErr(ErrTypeMismatch, arg.Pos, "argument %d of '%s' must be %s, got %s", i+1, name, sig.Params[i].RValue(), argT)
		}
	}

	cg.out.Comment("call %s", name)
	for i := 0; i < n && i < NumArgRegs; i++ {
		cg.out.LoadWord(argRegs[i], WordSize*(n-1-i), "sp")
	}
	if m := n - NumArgRegs; m > 1 {
		for j := 0; j < m/2; j++ {
			k := m - 1 - j
			cg.out.LoadWord("t0", WordSize*j, "sp")
			cg.out.LoadWord("t1", WordSize*k, "sp")
			cg.out.StoreWord("t1", WordSize*j, "sp")
			cg.out.StoreWord("t0", WordSize*k, "sp")
		}
	}
	cg.out.Instr("call %s", name)
	if n > 0 {
		cg.out.AddImm("sp", "sp", WordSize*n)
	}
	cg.out.Push("a0")
	return sig.Return.RValue(), nil
}

func (cg *CodeGen) visitInteger(node *ASTNode) (Type, error) {
	v, err := parseIntLiteral(node)
	if err != nil {
		return NoType(), err
	}
	cg.out.Comment("number %s", node.Literal)
	cg.out.PushImm(v)
	return IntType(RValue), nil
}

func (cg *CodeGen) visitIdent(node *ASTNode) (Type, error) {
	if sym, ok := cg.scopes.Lookup(node.String); ok {
		cg.out.Comment("local %s", sym)
		cg.out.PushLocalAddr(sym.Offset)
		return sym.Type, nil
	}
	if g, ok := cg.reg.LookupGlobal(node.String); ok {
		cg.out.Comment("global %s", g.Name)
		cg.out.PushGlobalAddr(g.Name)
		return g.Type, nil
	}
	return NoType(), semErr(ErrUndeclared, node.Pos, "use of undeclared identifier '%s'", node.String)
}

const maxIntLiteral = "2147483647"

// parseIntLiteral accepts decimal literals up to the largest int. The
// comparison is on digit strings so arbitrarily long literals are handled.
func parseIntLiteral(node *ASTNode) (int32, error) {
	digits := strings.TrimLeft(node.Literal, "0")
	if len(digits) > len(maxIntLiteral) || (len(digits) == len(maxIntLiteral) && digits > maxIntLiteral) {
		return 0, semErr(ErrIntegerTooLarge, node.Pos, "integer literal %s is too large", node.Literal)
	}
	var v int32
	for _, c := range digits {
		v = v*10 + int32(c-'0')
	}
	return v, nil
}
