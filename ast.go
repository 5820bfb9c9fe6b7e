package main

import (
	"strconv"
	"strings"
)

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeProgram  NodeKind = "NodeProgram"
	NodeFuncDecl NodeKind = "NodeFuncDecl"
	NodeFuncDef  NodeKind = "NodeFuncDef"
	NodeParam    NodeKind = "NodeParam"
	NodeGlobal   NodeKind = "NodeGlobal"
	NodeVar      NodeKind = "NodeVar"

	NodeBlock    NodeKind = "NodeBlock"
	NodeExprStmt NodeKind = "NodeExprStmt"
	NodeReturn   NodeKind = "NodeReturn"
	NodeIf       NodeKind = "NodeIf"
	NodeWhile    NodeKind = "NodeWhile"
	NodeFor      NodeKind = "NodeFor"
	NodeDoWhile  NodeKind = "NodeDoWhile"
	NodeBreak    NodeKind = "NodeBreak"
	NodeContinue NodeKind = "NodeContinue"

	NodeAssign  NodeKind = "NodeAssign"
	NodeTernary NodeKind = "NodeTernary"
	NodeBinary  NodeKind = "NodeBinary"
	NodeUnary   NodeKind = "NodeUnary"
	NodeCast    NodeKind = "NodeCast"
	NodeCall    NodeKind = "NodeCall"
	NodeIndex   NodeKind = "NodeIndex"
	NodeInteger NodeKind = "NodeInteger"
	NodeIdent   NodeKind = "NodeIdent"
)

// TypeSpec is a syntactic type annotation: `int`, some stars, and optional
// array dimensions kept as literal text until they are checked.
type TypeSpec struct {
	Stars int
	Dims  []ArrayDim
}

// ArrayDim is one `[N]` suffix.
type ArrayDim struct {
	Len string
	Pos Pos
}

func (ts *TypeSpec) String() string {
	var b strings.Builder
	b.WriteString("int")
	b.WriteString(strings.Repeat("*", ts.Stars))
	for _, d := range ts.Dims {
		b.WriteString("[" + d.Len + "]")
	}
	return b.String()
}

// ASTNode represents a node in the Abstract Syntax Tree
type ASTNode struct {
	Kind NodeKind
	Pos  Pos

	// NodeIdent, NodeCall, NodeFuncDecl, NodeFuncDef, NodeParam, NodeGlobal,
	// NodeVar:
	String string
	// NodeInteger:
	Literal string
	// NodeBinary, NodeUnary:
	Op string
	// Declarations and NodeCast. For functions this is the return type.
	Type *TypeSpec

	// NodeFor keeps exactly four children (init, cond, update, body); the
	// first three may be nil.
	Children []*ASTNode
	// NodeFuncDef:
	Body *ASTNode
}

// ToSExpr converts an AST node to s-expression string representation
func ToSExpr(node *ASTNode) string {
	if node == nil {
		return "_"
	}
	q := strconv.Quote
	switch node.Kind {
	case NodeProgram:
		return sexpList("program", childrenSExpr(node.Children)...)
	case NodeFuncDecl, NodeFuncDef:
		head := "func"
		if node.Kind == NodeFuncDecl {
			head = "func-decl"
		}
		parts := []string{q(node.String), q(node.Type.String()), sexpList("params", childrenSExpr(node.Children)...)}
		if node.Body != nil {
			parts = append(parts, ToSExpr(node.Body))
		}
		return sexpList(head, parts...)
	case NodeParam:
		return sexpList("param", q(node.String), q(node.Type.String()))
	case NodeGlobal, NodeVar:
		head := "var"
		if node.Kind == NodeGlobal {
			head = "global"
		}
		parts := []string{q(node.String), q(node.Type.String())}
		return sexpList(head, append(parts, childrenSExpr(node.Children)...)...)
	case NodeBlock:
		return sexpList("block", childrenSExpr(node.Children)...)
	case NodeExprStmt:
		return sexpList("expr", childrenSExpr(node.Children)...)
	case NodeReturn:
		return sexpList("return", childrenSExpr(node.Children)...)
	case NodeIf:
		return sexpList("if", childrenSExpr(node.Children)...)
	case NodeWhile:
		return sexpList("while", childrenSExpr(node.Children)...)
	case NodeFor:
		return sexpList("for", childrenSExpr(node.Children)...)
	case NodeDoWhile:
		return sexpList("do", childrenSExpr(node.Children)...)
	case NodeBreak:
		return "(break)"
	case NodeContinue:
		return "(continue)"
	case NodeAssign:
		return sexpList("assign", childrenSExpr(node.Children)...)
	case NodeTernary:
		return sexpList("ternary", childrenSExpr(node.Children)...)
	case NodeBinary:
		return sexpList("binary", append([]string{q(node.Op)}, childrenSExpr(node.Children)...)...)
	case NodeUnary:
		return sexpList("unary", append([]string{q(node.Op)}, childrenSExpr(node.Children)...)...)
	case NodeCast:
		return sexpList("cast", append([]string{q(node.Type.String())}, childrenSExpr(node.Children)...)...)
	case NodeCall:
		return sexpList("call", append([]string{q(node.String)}, childrenSExpr(node.Children)...)...)
	case NodeIndex:
		return sexpList("idx", childrenSExpr(node.Children)...)
	case NodeInteger:
		return node.Literal
	case NodeIdent:
		return sexpList("ident", q(node.String))
	default:
		return ""
	}
}

func childrenSExpr(children []*ASTNode) []string {
	out := make([]string, len(children))
	for i, c := range children {
		out[i] = ToSExpr(c)
	}
	return out
}

func sexpList(head string, parts ...string) string {
	if len(parts) == 0 {
		return "(" + head + ")"
	}
	return "(" + head + " " + strings.Join(parts, " ") + ")"
}
