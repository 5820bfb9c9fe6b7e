package main

import (
	"math"
	"strconv"
	"strings"
)

// ValueCat is the value category of an expression.
type ValueCat int

const (
	RValue ValueCat = iota
	LValue
)

func (c ValueCat) String() string {
	if c == LValue {
		return "lvalue"
	}
	return "rvalue"
}

// TypeKind enumerates the closed set of type variants.
type TypeKind int

const (
	KindNone TypeKind = iota
	KindInt
	KindPointer
	KindArray
)

// WordSize is the size of int and of every pointer on the target.
const WordSize = 4

// Type is an immutable tagged variant. Which fields are meaningful depends
// on Kind:
//
//	KindNone     nothing
//	KindInt      Cat
//	KindPointer  Cat, Depth (>= 1)
//	KindArray    Elem, Len; always an rvalue
type Type struct {
	Kind  TypeKind
	Cat   ValueCat
	Depth int
	Elem  *Type
	Len   int
}

func NoType() Type { return Type{Kind: KindNone} }

func IntType(cat ValueCat) Type { return Type{Kind: KindInt, Cat: cat} }

func PointerType(depth int, cat ValueCat) Type {
	return Type{Kind: KindPointer, Cat: cat, Depth: depth}
}

func ArrayType(elem Type, n int) Type {
	e := elem
	return Type{Kind: KindArray, Cat: RValue, Elem: &e, Len: n}
}

func (t Type) IsNone() bool    { return t.Kind == KindNone }
func (t Type) IsInt() bool     { return t.Kind == KindInt }
func (t Type) IsPointer() bool { return t.Kind == KindPointer }
func (t Type) IsArray() bool   { return t.Kind == KindArray }
func (t Type) IsLValue() bool  { return t.Cat == LValue }

// IsScalar reports whether a value of t fits in one register.
func (t Type) IsScalar() bool { return t.Kind == KindInt || t.Kind == KindPointer }

// Equal is structural and sensitive to value category and pointer depth.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindNone:
		return true
	case KindInt:
		return t.Cat == o.Cat
	case KindPointer:
		return t.Depth == o.Depth && t.Cat == o.Cat
	case KindArray:
		return t.Len == o.Len && t.Elem.Equal(*o.Elem)
	}
	return false
}

// SameShape compares two types ignoring the value category of scalars. It
// is what assignment, calls and returns check.
func (t Type) SameShape(o Type) bool {
	return t.RValue().Equal(o.RValue())
}

// Size returns the number of bytes a value of t occupies.
func (t Type) Size() (int, error) {
	switch t.Kind {
	case KindInt, KindPointer:
		return WordSize, nil
	case KindArray:
		n, err := t.Elem.Size()
		if err != nil {
			return 0, err
		}
		return t.Len * n, nil
	}
	return 0, semErr(ErrInvalidSizeQuery, Pos{}, "size of %s is undefined", t)
}

// Referenced is the type of &e for an lvalue e of type t.
func (t Type) Referenced() (Type, error) {
	if !t.IsScalar() || t.Cat != LValue {
		return Type{}, semErr(ErrInvalidReference, Pos{}, "cannot take the address of %s %s", t.Cat, t)
	}
	if t.Kind == KindInt {
		return PointerType(1, RValue), nil
	}
	return PointerType(t.Depth+1, RValue), nil
}

// Dereferenced is the type of *e for a pointer e of type t.
func (t Type) Dereferenced() (Type, error) {
	if t.Kind != KindPointer {
		return Type{}, semErr(ErrInvalidDereference, Pos{}, "cannot dereference %s", t)
	}
	if t.Depth == 1 {
		return IntType(LValue), nil
	}
	return PointerType(t.Depth-1, LValue), nil
}

// Indexed is the type of e[i]. Indexing an array of arrays yields the inner
// array; otherwise the element is an lvalue.
func (t Type) Indexed() (Type, error) {
	switch t.Kind {
	case KindPointer:
		return t.Dereferenced()
	case KindArray:
		if t.Elem.Kind == KindArray {
			return *t.Elem, nil
		}
		return t.Elem.ValueCast(LValue)
	}
	return Type{}, semErr(ErrInvalidDereference, Pos{}, "cannot index %s", t)
}

// ValueCast changes the value category. Arrays are rvalues only.
func (t Type) ValueCast(cat ValueCat) (Type, error) {
	switch t.Kind {
	case KindInt, KindPointer:
		t.Cat = cat
		return t, nil
	case KindArray:
		if cat == LValue {
			return Type{}, semErr(ErrInvalidCast, Pos{}, "array %s cannot be an lvalue", t)
		}
		return t, nil
	}
	return Type{}, semErr(ErrInvalidCast, Pos{}, "cannot cast %s", t)
}

// RValue is ValueCast(RValue) for types where that cannot fail.
func (t Type) RValue() Type {
	if t.IsScalar() {
		t.Cat = RValue
	}
	return t
}

func (t Type) String() string {
	switch t.Kind {
	case KindNone:
		return "NoType"
	case KindInt:
		return "int"
	case KindPointer:
		return "int" + strings.Repeat("*", t.Depth)
	case KindArray:
		var dims strings.Builder
		base := t
		for base.Kind == KindArray {
			dims.WriteString("[" + strconv.Itoa(base.Len) + "]")
			base = *base.Elem
		}
		return base.String() + dims.String()
	}
	return "?"
}

// TypeFromSpec resolves a syntactic annotation. Scalars come back as
// lvalues since every declaration names storage.
func TypeFromSpec(ts *TypeSpec) (Type, error) {
	t := IntType(LValue)
	if ts.Stars > 0 {
		t = PointerType(ts.Stars, LValue)
	}
	for i := len(ts.Dims) - 1; i >= 0; i-- {
		dim := ts.Dims[i]
		n, err := strconv.ParseInt(dim.Len, 10, 64)
		if err != nil || n > math.MaxInt32 {
			return Type{}, semErr(ErrIntegerTooLarge, dim.Pos, "array length %s is too large", dim.Len)
		}
		if n <= 0 {
			return Type{}, semErr(ErrInvalidArrayLength, dim.Pos, "array length must be positive, got %s", dim.Len)
		}
		t = ArrayType(t, int(n))
		if size, _ := t.Size(); size > math.MaxInt32/2 {
			return Type{}, semErr(ErrInvalidArrayLength, dim.Pos, "array %s is too large", t)
		}
	}
	return t, nil
}
