package main

import "fmt"

// Lexer turns MiniDecaf source text into tokens. The input must end with a
// 0 byte; NewLexer appends one when it is missing.
type Lexer struct {
	input []byte
	pos   int // current reading position in input
	line  int
	col   int
}

func NewLexer(in []byte) *Lexer {
	if len(in) == 0 || in[len(in)-1] != 0 {
		buf := make([]byte, len(in), len(in)+1)
		copy(buf, in)
		in = append(buf, 0)
	}
	return &Lexer{input: in, line: 1}
}

// Tokenize scans the whole input. The last token is always EOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var toks []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *Lexer) here() Pos {
	return Pos{Line: l.line, Column: l.col}
}

// NextToken scans the next token.
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	start := l.here()
	c := l.input[l.pos]
	nxt := byte(0)
	if c != 0 {
		nxt = l.input[l.pos+1]
	}

	single := func(t TokenType) (Token, error) {
		l.advance(1)
		return Token{Type: t, Literal: string(c), Pos: start}, nil
	}
	double := func(t TokenType) (Token, error) {
		lit := string(l.input[l.pos : l.pos+2])
		l.advance(2)
		return Token{Type: t, Literal: lit, Pos: start}, nil
	}

	switch {
	case c == 0:
		return Token{Type: EOF, Pos: start}, nil
	case c == '=' && nxt == '=':
		return double(EQ)
	case c == '=':
		return single(ASSIGN)
	case c == '!' && nxt == '=':
		return double(NOT_EQ)
	case c == '!':
		return single(BANG)
	case c == '<' && nxt == '=':
		return double(LE)
	case c == '<':
		return single(LT)
	case c == '>' && nxt == '=':
		return double(GE)
	case c == '>':
		return single(GT)
	case c == '&' && nxt == '&':
		return double(AND)
	case c == '&':
		return single(AMP)
	case c == '|' && nxt == '|':
		return double(OR)
	case c == '+':
		return single(PLUS)
	case c == '-':
		return single(MINUS)
	case c == '~':
		return single(TILDE)
	case c == '*':
		return single(ASTERISK)
	case c == '/':
		return single(SLASH)
	case c == '%':
		return single(PERCENT)
	case c == '?':
		return single(QUESTION)
	case c == ':':
		return single(COLON)
	case c == ',':
		return single(COMMA)
	case c == ';':
		return single(SEMICOLON)
	case c == '(':
		return single(LPAREN)
	case c == ')':
		return single(RPAREN)
	case c == '{':
		return single(LBRACE)
	case c == '}':
		return single(RBRACE)
	case c == '[':
		return single(LBRACKET)
	case c == ']':
		return single(RBRACKET)
	case isLetter(c):
		lit := l.readIdentifier()
		if kw, ok := keywords[lit]; ok {
			return Token{Type: kw, Literal: lit, Pos: start}, nil
		}
		return Token{Type: IDENT, Literal: lit, Pos: start}, nil
	case isDigit(c):
		return Token{Type: INT, Literal: l.readNumber(), Pos: start}, nil
	default:
		return Token{}, &SyntaxError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
	}
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance(1)
		case c == '/' && l.input[l.pos+1] == '/':
			for l.input[l.pos] != '\n' && l.input[l.pos] != 0 {
				l.advance(1)
			}
		case c == '/' && l.input[l.pos+1] == '*':
			start := l.here()
			l.advance(2) // skip /*
			for !(l.input[l.pos] == '*' && l.input[l.pos+1] == '/') {
				if l.input[l.pos] == 0 {
					return &SyntaxError{Pos: start, Msg: "unterminated block comment"}
				}
				l.advance(1)
			}
			l.advance(2) // skip */
		default:
			return nil
		}
	}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.input[l.pos]) || isDigit(l.input[l.pos]) {
		l.advance(1)
	}
	return string(l.input[start:l.pos])
}

// readNumber keeps the literal as text; range checking happens during code
// generation so that the error carries the literal's position.
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.input[l.pos]) {
		l.advance(1)
	}
	return string(l.input[start:l.pos])
}
