package main

import "fmt"

// SyntaxError is reported by the lexer and parser. Parsing stops at the
// first one.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Msg)
}

// ErrorKind classifies semantic errors.
type ErrorKind int

const (
	ErrUndeclared ErrorKind = iota + 1
	ErrDuplicateDeclaration
	ErrNameConflict
	ErrSignatureMismatch
	ErrDuplicateDefinition
	ErrMissingMain
	ErrIntegerTooLarge
	ErrArgumentCount
	ErrBreakOutsideLoop
	ErrContinueOutsideLoop
	ErrInvalidReference
	ErrInvalidDereference
	ErrInvalidCast
	ErrInvalidSizeQuery
	ErrTypeMismatch
	ErrNotAnLValue
	ErrInvalidArrayLength
	ErrNotAFunction
)

var errorKindNames = map[ErrorKind]string{
	ErrUndeclared:           "undeclared identifier",
	ErrDuplicateDeclaration: "duplicate declaration",
	ErrNameConflict:         "name conflict",
	ErrSignatureMismatch:    "signature mismatch",
	ErrDuplicateDefinition:  "duplicate definition",
	ErrMissingMain:          "missing main",
	ErrIntegerTooLarge:      "integer too large",
	ErrArgumentCount:        "argument count mismatch",
	ErrBreakOutsideLoop:     "break outside loop",
	ErrContinueOutsideLoop:  "continue outside loop",
	ErrInvalidReference:     "invalid reference",
	ErrInvalidDereference:   "invalid dereference",
	ErrInvalidCast:          "invalid cast",
	ErrInvalidSizeQuery:     "invalid size query",
	ErrTypeMismatch:         "type mismatch",
	ErrNotAnLValue:          "lvalue expected",
	ErrInvalidArrayLength:   "invalid array length",
	ErrNotAFunction:         "not a function",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error lets a bare kind be used as an errors.Is target.
func (k ErrorKind) Error() string {
	return k.String()
}

// SemanticError aborts compilation. Pos is the zero value when the error is
// not tied to a node (for example a missing main).
type SemanticError struct {
	Kind ErrorKind
	Pos  Pos
	Msg  string
}

func (e *SemanticError) Error() string {
	if e.Pos == (Pos{}) {
		return fmt.Sprintf("error: %s", e.Msg)
	}
	return fmt.Sprintf("error at %s: %s", e.Pos, e.Msg)
}

// Is reports whether target is this error's kind, so callers can write
// errors.Is(err, ErrMissingMain).
func (e *SemanticError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

func semErr(kind ErrorKind, pos Pos, format string, args ...any) *SemanticError {
	return &SemanticError{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// at fills in a position for errors raised by helpers that do not know
// which node they are working on.
func at(err error, pos Pos) error {
	if se, ok := err.(*SemanticError); ok && se.Pos == (Pos{}) {
		se.Pos = pos
	}
	return err
}
