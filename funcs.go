package main

import "strings"

// FuncSignature is a function's return type and ordered parameter types.
type FuncSignature struct {
	Return Type
	Params []Type
}

// Equal compares signatures by shape; parameters are lvalues inside the
// callee but that is not part of the signature.
func (f FuncSignature) Equal(o FuncSignature) bool {
	if !f.Return.SameShape(o.Return) || len(f.Params) != len(o.Params) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].SameShape(o.Params[i]) {
			return false
		}
	}
	return true
}

func (f FuncSignature) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return f.Return.String() + "(" + strings.Join(params, ", ") + ")"
}

// GlobalVar is a global variable as it will be laid out in the data
// section.
type GlobalVar struct {
	Name        string
	Type        Type
	Initialized bool
	Init        int32
}

// Registry holds the unit-wide tables: declared and defined functions and
// declared and initialized globals. Functions and globals share one
// namespace.
type Registry struct {
	declaredFuncs map[string]FuncSignature
	definedFuncs  map[string]FuncSignature
	globals       map[string]*GlobalVar
	globalOrder   []string
}

func NewRegistry() *Registry {
	return &Registry{
		declaredFuncs: make(map[string]FuncSignature),
		definedFuncs:  make(map[string]FuncSignature),
		globals:       make(map[string]*GlobalVar),
	}
}

// DeclareFunc records a prototype. Identical redeclarations are accepted.
func (r *Registry) DeclareFunc(name string, sig FuncSignature) error {
	if _, ok := r.globals[name]; ok {
		return semErr(ErrNameConflict, Pos{}, "function '%s' conflicts with a global variable", name)
	}
	if prev, ok := r.declaredFuncs[name]; ok {
		if !prev.Equal(sig) {
			return semErr(ErrSignatureMismatch, Pos{}, "function '%s' declared as %s, previously %s", name, sig, prev)
		}
		return nil
	}
	r.declaredFuncs[name] = sig
	return nil
}

// DefineFunc records a definition, which also counts as a declaration.
func (r *Registry) DefineFunc(name string, sig FuncSignature) error {
	if _, ok := r.definedFuncs[name]; ok {
		return semErr(ErrDuplicateDefinition, Pos{}, "function '%s' is already defined", name)
	}
	if err := r.DeclareFunc(name, sig); err != nil {
		return err
	}
	r.definedFuncs[name] = sig
	return nil
}

// LookupFunc returns the signature of a declared or defined function.
func (r *Registry) LookupFunc(name string) (FuncSignature, bool) {
	sig, ok := r.declaredFuncs[name]
	return sig, ok
}

func (r *Registry) IsDefined(name string) bool {
	_, ok := r.definedFuncs[name]
	return ok
}

// DeclareGlobal records `int x;`. A redeclaration must repeat the type.
func (r *Registry) DeclareGlobal(name string, t Type) (*GlobalVar, error) {
	if _, ok := r.declaredFuncs[name]; ok {
		return nil, semErr(ErrNameConflict, Pos{}, "global '%s' conflicts with a function", name)
	}
	if g, ok := r.globals[name]; ok {
		if !g.Type.Equal(t) {
			return nil, semErr(ErrDuplicateDeclaration, Pos{}, "global '%s' redeclared as %s, previously %s", name, t, g.Type)
		}
		return g, nil
	}
	g := &GlobalVar{Name: name, Type: t}
	r.globals[name] = g
	r.globalOrder = append(r.globalOrder, name)
	return g, nil
}

// InitGlobal records `int x = v;`. A global gets at most one initializer.
func (r *Registry) InitGlobal(name string, t Type, v int32) (*GlobalVar, error) {
	g, err := r.DeclareGlobal(name, t)
	if err != nil {
		return nil, err
	}
	if g.Initialized {
		return nil, semErr(ErrDuplicateDefinition, Pos{}, "global '%s' is initialized twice", name)
	}
	g.Initialized = true
	g.Init = v
	return g, nil
}

func (r *Registry) LookupGlobal(name string) (*GlobalVar, bool) {
	g, ok := r.globals[name]
	return g, ok
}

// UninitializedGlobals lists, in declaration order, the globals that never
// received an initializer. They become zero storage at the end of the unit.
func (r *Registry) UninitializedGlobals() []*GlobalVar {
	var out []*GlobalVar
	for _, name := range r.globalOrder {
		if g := r.globals[name]; !g.Initialized {
			out = append(out, g)
		}
	}
	return out
}

// CheckMain is run once the whole unit has been accepted.
func (r *Registry) CheckMain() error {
	if !r.IsDefined("main") {
		return semErr(ErrMissingMain, Pos{}, "no main function")
	}
	return nil
}

func (r *Registry) DefinedCount() int { return len(r.definedFuncs) }

func (r *Registry) GlobalCount() int { return len(r.globals) }
