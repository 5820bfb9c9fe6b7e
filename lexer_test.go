package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func lexTypes(t *testing.T, input string) []TokenType {
	t.Helper()
	toks, err := NewLexer([]byte(input)).Tokenize()
	be.Err(t, err, nil)
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func TestIntLiteral(t *testing.T) {
	toks, err := NewLexer([]byte("12345")).Tokenize()
	be.Err(t, err, nil)
	be.Equal(t, len(toks), 2)
	be.Equal(t, toks[0].Type, TokenType(INT))
	be.Equal(t, toks[0].Literal, "12345")
	be.Equal(t, toks[1].Type, TokenType(EOF))
}

func TestIdentifierAndKeywords(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"foobar", IDENT},
		{"_tmp1", IDENT},
		{"integer", IDENT},
		{"int", KW_INT},
		{"if", IF},
		{"else", ELSE},
		{"while", WHILE},
		{"for", FOR},
		{"do", DO},
		{"break", BREAK},
		{"continue", CONTINUE},
		{"return", RETURN},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			toks, err := NewLexer([]byte(test.input)).Tokenize()
			be.Err(t, err, nil)
			be.Equal(t, toks[0].Type, test.typ)
			be.Equal(t, toks[0].Literal, test.input)
		})
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"=", ASSIGN},
		{"==", EQ},
		{"!", BANG},
		{"!=", NOT_EQ},
		{"<", LT},
		{"<=", LE},
		{">", GT},
		{">=", GE},
		{"&", AMP},
		{"&&", AND},
		{"||", OR},
		{"+", PLUS},
		{"-", MINUS},
		{"~", TILDE},
		{"*", ASTERISK},
		{"/", SLASH},
		{"%", PERCENT},
		{"?", QUESTION},
		{":", COLON},
		{",", COMMA},
		{";", SEMICOLON},
		{"(", LPAREN},
		{")", RPAREN},
		{"{", LBRACE},
		{"}", RBRACE},
		{"[", LBRACKET},
		{"]", RBRACKET},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			be.Equal(t, lexTypes(t, test.input), []TokenType{test.typ, EOF})
		})
	}
}

func TestMaximalMunch(t *testing.T) {
	be.Equal(t, lexTypes(t, "a<=b"), []TokenType{IDENT, LE, IDENT, EOF})
	be.Equal(t, lexTypes(t, "!!x"), []TokenType{BANG, BANG, IDENT, EOF})
	be.Equal(t, lexTypes(t, "a&&&b"), []TokenType{IDENT, AND, AMP, IDENT, EOF})
	be.Equal(t, lexTypes(t, "x===y"), []TokenType{IDENT, EQ, ASSIGN, IDENT, EOF})
}

func TestComments(t *testing.T) {
	input := "int // line comment\n/* block\n comment */ x /**/;"
	be.Equal(t, lexTypes(t, input), []TokenType{KW_INT, IDENT, SEMICOLON, EOF})
}

func TestPositions(t *testing.T) {
	toks, err := NewLexer([]byte("int main() {\n  return 0;\n}")).Tokenize()
	be.Err(t, err, nil)

	want := []Pos{
		{1, 0},  // int
		{1, 4},  // main
		{1, 8},  // (
		{1, 9},  // )
		{1, 11}, // {
		{2, 2},  // return
		{2, 9},  // 0
		{2, 10}, // ;
		{3, 0},  // }
		{3, 1},  // EOF
	}
	be.Equal(t, len(toks), len(want))
	for i, tok := range toks {
		be.Equal(t, tok.Pos, want[i])
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		input string
		err   string
	}{
		{"a | b", "syntax error at 1:2: unexpected character '|'"},
		{"x @", "unexpected character '@'"},
		{"int /* open", "syntax error at 1:4: unterminated block comment"},
		{"\"str\"", "unexpected character '\"'"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, err := NewLexer([]byte(test.input)).Tokenize()
			be.Err(t, err, test.err)
		})
	}
}

func TestNullTerminatedInput(t *testing.T) {
	toks, err := NewLexer([]byte("x\x00")).Tokenize()
	be.Err(t, err, nil)
	be.Equal(t, len(toks), 2)
	be.Equal(t, toks[0].Literal, "x")
}
