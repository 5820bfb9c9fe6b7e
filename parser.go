package main

import "fmt"

// Parser is a recursive-descent parser over a token slice. It stops at the
// first syntax error: helpers panic with a bailout that the exported entry
// points turn back into an error.
type Parser struct {
	toks []Token
	pos  int
}

type bailout struct{ err *SyntaxError }

func NewParser(toks []Token) *Parser {
	return &Parser{toks: toks}
}

// ParseProgram parses a whole translation unit.
func ParseProgram(src []byte) (prog *ASTNode, err error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := NewParser(toks)
	defer p.recover(&err)
	return p.parseProgram(), nil
}

// ParseExpression parses a single expression and requires it to consume the
// whole input.
func ParseExpression(src []byte) (expr *ASTNode, err error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := NewParser(toks)
	defer p.recover(&err)
	expr = p.parseExpr()
	p.expect(EOF)
	return expr, nil
}

func (p *Parser) recover(err *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*err = b.err
	}
}

func (p *Parser) cur() Token {
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(t TokenType) bool {
	return p.cur().Type == t
}

func (p *Parser) fail(format string, args ...any) {
	p.failAt(p.cur().Pos, format, args...)
}

func (p *Parser) failAt(pos Pos, format string, args ...any) {
	panic(bailout{&SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}})
}

// expect advances past the current token, asserting it matches t.
func (p *Parser) expect(t TokenType) Token {
	tok := p.cur()
	if tok.Type != t {
		if tok.Type == EOF {
			p.fail("expected %s but got end of input", describe(t))
		}
		p.fail("expected %s but got %q", describe(t), tok.Literal)
	}
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) accept(t TokenType) bool {
	if p.at(t) {
		p.pos++
		return true
	}
	return false
}

func describe(t TokenType) string {
	switch t {
	case IDENT:
		return "identifier"
	case INT:
		return "integer"
	case KW_INT:
		return "'int'"
	case EOF:
		return "end of input"
	}
	return "'" + string(t) + "'"
}

func (p *Parser) parseProgram() *ASTNode {
	prog := &ASTNode{Kind: NodeProgram, Pos: p.cur().Pos}
	for !p.at(EOF) {
		prog.Children = append(prog.Children, p.parseTopLevel())
	}
	return prog
}

func (p *Parser) parseTypeSpec() *TypeSpec {
	p.expect(KW_INT)
	ts := &TypeSpec{}
	for p.accept(ASTERISK) {
		ts.Stars++
	}
	return ts
}

func (p *Parser) parseDims(ts *TypeSpec) {
	for p.accept(LBRACKET) {
		lit := p.expect(INT)
		ts.Dims = append(ts.Dims, ArrayDim{Len: lit.Literal, Pos: lit.Pos})
		p.expect(RBRACKET)
	}
}

func (p *Parser) parseTopLevel() *ASTNode {
	start := p.cur().Pos
	ts := p.parseTypeSpec()
	name := p.expect(IDENT)

	if p.accept(LPAREN) {
		fn := &ASTNode{Kind: NodeFuncDecl, Pos: start, String: name.Literal, Type: ts}
		if !p.at(RPAREN) {
			for {
				fn.Children = append(fn.Children, p.parseParam())
				if !p.accept(COMMA) {
					break
				}
			}
		}
		p.expect(RPAREN)
		if p.accept(SEMICOLON) {
			return fn
		}
		for i, param := range fn.Children {
			if param.String == "" {
				p.failAt(param.Pos, "parameter %d of '%s' needs a name", i+1, fn.String)
			}
		}
		fn.Kind = NodeFuncDef
		fn.Body = p.parseBlock()
		return fn
	}

	g := &ASTNode{Kind: NodeGlobal, Pos: start, String: name.Literal, Type: ts}
	p.parseDims(ts)
	if p.accept(ASSIGN) {
		lit := p.expect(INT)
		g.Children = []*ASTNode{{Kind: NodeInteger, Pos: lit.Pos, Literal: lit.Literal}}
	}
	p.expect(SEMICOLON)
	return g
}

func (p *Parser) parseParam() *ASTNode {
	start := p.cur().Pos
	ts := p.parseTypeSpec()
	param := &ASTNode{Kind: NodeParam, Pos: start, Type: ts}
	// Prototypes may leave parameters unnamed.
	if !p.at(COMMA) && !p.at(RPAREN) {
		param.String = p.expect(IDENT).Literal
	}
	return param
}

func (p *Parser) parseBlock() *ASTNode {
	block := &ASTNode{Kind: NodeBlock, Pos: p.expect(LBRACE).Pos}
	for !p.at(RBRACE) && !p.at(EOF) {
		block.Children = append(block.Children, p.parseBlockItem())
	}
	p.expect(RBRACE)
	return block
}

func (p *Parser) parseBlockItem() *ASTNode {
	if p.at(KW_INT) {
		return p.parseDeclaration()
	}
	return p.parseStatement()
}

func (p *Parser) parseDeclaration() *ASTNode {
	start := p.cur().Pos
	ts := p.parseTypeSpec()
	name := p.expect(IDENT)
	p.parseDims(ts)
	decl := &ASTNode{Kind: NodeVar, Pos: start, String: name.Literal, Type: ts}
	if p.accept(ASSIGN) {
		decl.Children = []*ASTNode{p.parseExpr()}
	}
	p.expect(SEMICOLON)
	return decl
}

func (p *Parser) parseOptionalExpr(end TokenType) *ASTNode {
	if p.at(end) {
		return nil
	}
	return p.parseExpr()
}

// parseStatement parses a statement and returns an AST node
func (p *Parser) parseStatement() *ASTNode {
	tok := p.cur()
	switch tok.Type {
	case RETURN:
		p.pos++
		ret := &ASTNode{Kind: NodeReturn, Pos: tok.Pos, Children: []*ASTNode{p.parseExpr()}}
		p.expect(SEMICOLON)
		return ret

	case IF:
		p.pos++
		p.expect(LPAREN)
		cond := p.parseExpr()
		p.expect(RPAREN)
		node := &ASTNode{Kind: NodeIf, Pos: tok.Pos, Children: []*ASTNode{cond, p.parseStatement()}}
		if p.accept(ELSE) {
			node.Children = append(node.Children, p.parseStatement())
		}
		return node

	case LBRACE:
		return p.parseBlock()

	case WHILE:
		p.pos++
		p.expect(LPAREN)
		cond := p.parseExpr()
		p.expect(RPAREN)
		return &ASTNode{Kind: NodeWhile, Pos: tok.Pos, Children: []*ASTNode{cond, p.parseStatement()}}

	case DO:
		p.pos++
		body := p.parseStatement()
		p.expect(WHILE)
		p.expect(LPAREN)
		cond := p.parseExpr()
		p.expect(RPAREN)
		p.expect(SEMICOLON)
		return &ASTNode{Kind: NodeDoWhile, Pos: tok.Pos, Children: []*ASTNode{body, cond}}

	case FOR:
		p.pos++
		p.expect(LPAREN)
		var init *ASTNode
		if p.at(KW_INT) {
			init = p.parseDeclaration()
		} else {
			if e := p.parseOptionalExpr(SEMICOLON); e != nil {
				init = &ASTNode{Kind: NodeExprStmt, Pos: e.Pos, Children: []*ASTNode{e}}
			}
			p.expect(SEMICOLON)
		}
		cond := p.parseOptionalExpr(SEMICOLON)
		p.expect(SEMICOLON)
		update := p.parseOptionalExpr(RPAREN)
		p.expect(RPAREN)
		body := p.parseStatement()
		return &ASTNode{Kind: NodeFor, Pos: tok.Pos, Children: []*ASTNode{init, cond, update, body}}

	case BREAK:
		p.pos++
		p.expect(SEMICOLON)
		return &ASTNode{Kind: NodeBreak, Pos: tok.Pos}

	case CONTINUE:
		p.pos++
		p.expect(SEMICOLON)
		return &ASTNode{Kind: NodeContinue, Pos: tok.Pos}

	case KW_INT:
		p.fail("declaration is not allowed here")
	}

	// Expression statement
	stmt := &ASTNode{Kind: NodeExprStmt, Pos: tok.Pos}
	if e := p.parseOptionalExpr(SEMICOLON); e != nil {
		stmt.Children = []*ASTNode{e}
	}
	p.expect(SEMICOLON)
	return stmt
}

// parseExpr parses an expression and returns an AST node
func (p *Parser) parseExpr() *ASTNode {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() *ASTNode {
	lhs := p.parseTernary()
	if p.accept(ASSIGN) {
		rhs := p.parseAssignment() // right-associative
		return &ASTNode{Kind: NodeAssign, Pos: lhs.Pos, Children: []*ASTNode{lhs, rhs}}
	}
	return lhs
}

func (p *Parser) parseTernary() *ASTNode {
	cond := p.parseBinary(0)
	if p.accept(QUESTION) {
		then := p.parseExpr()
		p.expect(COLON)
		els := p.parseTernary()
		return &ASTNode{Kind: NodeTernary, Pos: cond.Pos, Children: []*ASTNode{cond, then, els}}
	}
	return cond
}

// binaryLevels lists binary operators from loosest to tightest binding.
var binaryLevels = [][]TokenType{
	{OR},
	{AND},
	{EQ, NOT_EQ},
	{LT, GT, LE, GE},
	{PLUS, MINUS},
	{ASTERISK, SLASH, PERCENT},
}

// parseBinary parses one left-associative precedence level.
func (p *Parser) parseBinary(level int) *ASTNode {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for {
		op, ok := p.matchAny(binaryLevels[level])
		if !ok {
			return left
		}
		right := p.parseBinary(level + 1)
		left = &ASTNode{Kind: NodeBinary, Pos: left.Pos, Op: op.Literal, Children: []*ASTNode{left, right}}
	}
}

func (p *Parser) matchAny(types []TokenType) (Token, bool) {
	for _, t := range types {
		if p.at(t) {
			tok := p.cur()
			p.pos++
			return tok, true
		}
	}
	return Token{}, false
}

func (p *Parser) parseUnary() *ASTNode {
	tok := p.cur()
	switch tok.Type {
	case MINUS, BANG, TILDE, AMP, ASTERISK:
		p.pos++
		operand := p.parseUnary()
		return &ASTNode{Kind: NodeUnary, Pos: tok.Pos, Op: tok.Literal, Children: []*ASTNode{operand}}
	case LPAREN:
		if p.peek(1).Type == KW_INT {
			p.pos++
			ts := p.parseTypeSpec()
			p.expect(RPAREN)
			operand := p.parseUnary()
			return &ASTNode{Kind: NodeCast, Pos: tok.Pos, Type: ts, Children: []*ASTNode{operand}}
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ASTNode {
	node := p.parsePrimary()
	for p.at(LBRACKET) {
		p.pos++
		index := p.parseExpr()
		p.expect(RBRACKET)
		node = &ASTNode{Kind: NodeIndex, Pos: node.Pos, Children: []*ASTNode{node, index}}
	}
	return node
}

// parsePrimary handles literals, identifiers, calls and parentheses.
func (p *Parser) parsePrimary() *ASTNode {
	tok := p.cur()
	switch tok.Type {
	case INT:
		p.pos++
		return &ASTNode{Kind: NodeInteger, Pos: tok.Pos, Literal: tok.Literal}

	case IDENT:
		p.pos++
		if !p.accept(LPAREN) {
			return &ASTNode{Kind: NodeIdent, Pos: tok.Pos, String: tok.Literal}
		}
		call := &ASTNode{Kind: NodeCall, Pos: tok.Pos, String: tok.Literal}
		if !p.at(RPAREN) {
			for {
				call.Children = append(call.Children, p.parseExpr())
				if !p.accept(COMMA) {
					break
				}
			}
		}
		p.expect(RPAREN)
		return call

	case LPAREN:
		p.pos++
		expr := p.parseExpr()
		p.expect(RPAREN)
		return expr
	}

	if tok.Type == EOF {
		p.fail("expected expression but got end of input")
	}
	p.fail("expected expression but got %q", tok.Literal)
	return nil
}
