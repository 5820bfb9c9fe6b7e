package main

import "fmt"

// Symbol is a local variable or parameter. Offset is relative to the frame
// pointer and fixed when the symbol is declared.
type Symbol struct {
	Name   string
	Offset int
	Type   Type
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s@%s:%d", s.Name, s.Type, s.Offset)
}

// ScopeStack is the stack of lexical scopes of the function being compiled.
// Index 0 is the function's outermost scope.
type ScopeStack struct {
	scopes []map[string]Symbol
}

func NewScopeStack() *ScopeStack {
	return &ScopeStack{}
}

func (s *ScopeStack) depth() int {
	return len(s.scopes)
}

func (s *ScopeStack) EnterScope() {
	s.scopes = append(s.scopes, make(map[string]Symbol))
}

// ExitScope pops the innermost scope. Popping an empty stack is a bug in
// the caller.
func (s *ScopeStack) ExitScope() {
	if len(s.scopes) == 0 {
		panic("ExitScope called with no open scope")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Declare adds name to the innermost scope. Shadowing an outer scope is
// fine; redeclaring within the same scope is not.
func (s *ScopeStack) Declare(name string, offset int, t Type) (Symbol, error) {
	if len(s.scopes) == 0 {
		panic("Declare called with no open scope")
	}
	inner := s.scopes[len(s.scopes)-1]
	if _, exists := inner[name]; exists {
		return Symbol{}, semErr(ErrDuplicateDeclaration, Pos{}, "variable '%s' already declared in this scope", name)
	}
	sym := Symbol{Name: name, Offset: offset, Type: t}
	inner[name] = sym
	return sym, nil
}

// Lookup walks from the innermost scope outwards and returns the first
// match.
func (s *ScopeStack) Lookup(name string) (Symbol, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if sym, ok := s.scopes[i][name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}
