package main

// NumArgRegs is how many arguments travel in registers; the rest are pushed
// by the caller.
const NumArgRegs = 8

var argRegs = [NumArgRegs]string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}

// savedRegBytes covers the saved fp at 0(fp) and ra at 4(fp).
const savedRegBytes = 2 * WordSize

// Frame lays out one function's stack frame. Register parameters and
// locals get increasingly negative fp offsets; stack parameters sit above
// the saved registers at positive offsets.
//
//	    ...
//	12(fp)  10th argument
//	 8(fp)  9th argument
//	 4(fp)  saved ra
//	 0(fp)  saved fp
//	-4(fp)  first register parameter or local
//	    ...
type Frame struct {
	Func       string
	localBytes int
}

func NewFrame(funcName string) *Frame {
	return &Frame{Func: funcName}
}

// Size is the number of bytes reserved below fp so far. It is final once the
// whole body has been visited.
func (f *Frame) Size() int {
	return f.localBytes
}

func (f *Frame) alloc(size int) int {
	f.localBytes += size
	return -f.localBytes
}

// StackParamOffset is where the caller left parameter i (i >= NumArgRegs).
func StackParamOffset(i int) int {
	return savedRegBytes + WordSize*(i-NumArgRegs)
}

// DeclareParam binds parameter i in the innermost scope.
func (f *Frame) DeclareParam(scopes *ScopeStack, i int, name string, t Type) (Symbol, error) {
	var offset int
	if i < NumArgRegs {
		offset = f.alloc(WordSize)
	} else {
		offset = StackParamOffset(i)
	}
	return scopes.Declare(name, offset, t)
}

// DeclareLocal reserves space for a local of type t and binds it in the
// innermost scope.
func (f *Frame) DeclareLocal(scopes *ScopeStack, name string, t Type) (Symbol, error) {
	size, err := t.Size()
	if err != nil {
		return Symbol{}, err
	}
	return scopes.Declare(name, f.alloc(size), t)
}
