package main

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func intArray(dims ...int) Type {
	t := IntType(LValue)
	for i := len(dims) - 1; i >= 0; i-- {
		t = ArrayType(t, dims[i])
	}
	return t
}

// dims builds array dimensions placed at consecutive columns of line 1.
func dims(lens ...string) []ArrayDim {
	out := make([]ArrayDim, len(lens))
	for i, n := range lens {
		out[i] = ArrayDim{Len: n, Pos: Pos{Line: 1, Column: 10 * (i + 1)}}
	}
	return out
}

func TestTypeString(t *testing.T) {
	be.Equal(t, NoType().String(), "NoType")
	be.Equal(t, IntType(RValue).String(), "int")
	be.Equal(t, PointerType(2, LValue).String(), "int**")
	be.Equal(t, intArray(2, 3).String(), "int[2][3]")
	be.Equal(t, ArrayType(PointerType(1, LValue), 4).String(), "int*[4]")
}

func TestTypeEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Type
		expected bool
	}{
		{"same int", IntType(RValue), IntType(RValue), true},
		{"category matters", IntType(RValue), IntType(LValue), false},
		{"int vs pointer", IntType(RValue), PointerType(1, RValue), false},
		{"pointer depth", PointerType(1, RValue), PointerType(2, RValue), false},
		{"same pointer", PointerType(2, LValue), PointerType(2, LValue), true},
		{"same array", intArray(2, 3), intArray(2, 3), true},
		{"array dims", intArray(2, 3), intArray(3, 2), false},
		{"array length", intArray(2), intArray(3), false},
		{"none", NoType(), NoType(), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			be.Equal(t, test.a.Equal(test.b), test.expected)
		})
	}

	be.True(t, IntType(LValue).SameShape(IntType(RValue)))
	be.True(t, !IntType(LValue).SameShape(PointerType(1, LValue)))
}

func TestTypeSize(t *testing.T) {
	tests := []struct {
		typ  Type
		size int
	}{
		{IntType(RValue), 4},
		{PointerType(3, LValue), 4},
		{intArray(5), 20},
		{intArray(2, 3), 24},
		{ArrayType(PointerType(1, LValue), 2), 8},
	}
	for _, test := range tests {
		t.Run(test.typ.String(), func(t *testing.T) {
			size, err := test.typ.Size()
			be.Err(t, err, nil)
			be.Equal(t, size, test.size)
		})
	}

	_, err := NoType().Size()
	be.Err(t, err, ErrInvalidSizeQuery)
}

func TestReferenced(t *testing.T) {
	ref, err := IntType(LValue).Referenced()
	be.Err(t, err, nil)
	be.Equal(t, ref, PointerType(1, RValue))

	ref, err = PointerType(2, LValue).Referenced()
	be.Err(t, err, nil)
	be.Equal(t, ref, PointerType(3, RValue))

	_, err = IntType(RValue).Referenced()
	be.Err(t, err, ErrInvalidReference)
	_, err = intArray(2).Referenced()
	be.Err(t, err, ErrInvalidReference)
	_, err = NoType().Referenced()
	be.Err(t, err, ErrInvalidReference)
}

func TestDereferenced(t *testing.T) {
	d, err := PointerType(1, RValue).Dereferenced()
	be.Err(t, err, nil)
	be.Equal(t, d, IntType(LValue))

	d, err = PointerType(3, LValue).Dereferenced()
	be.Err(t, err, nil)
	be.Equal(t, d, PointerType(2, LValue))

	_, err = IntType(LValue).Dereferenced()
	be.Err(t, err, ErrInvalidDereference)
	_, err = intArray(2).Dereferenced()
	be.Err(t, err, ErrInvalidDereference)
}

func TestIndexed(t *testing.T) {
	e, err := intArray(2, 3).Indexed()
	be.Err(t, err, nil)
	be.Equal(t, e, intArray(3))
	be.True(t, !e.IsLValue())

	e, err = intArray(3).Indexed()
	be.Err(t, err, nil)
	be.Equal(t, e, IntType(LValue))

	e, err = PointerType(2, RValue).Indexed()
	be.Err(t, err, nil)
	be.Equal(t, e, PointerType(1, LValue))

	_, err = IntType(LValue).Indexed()
	be.Err(t, err, ErrInvalidDereference)
}

func TestValueCast(t *testing.T) {
	c, err := IntType(RValue).ValueCast(LValue)
	be.Err(t, err, nil)
	be.Equal(t, c, IntType(LValue))

	c, err = intArray(2).ValueCast(RValue)
	be.Err(t, err, nil)
	be.Equal(t, c, intArray(2))

	_, err = intArray(2).ValueCast(LValue)
	be.Err(t, err, ErrInvalidCast)
	_, err = NoType().ValueCast(RValue)
	be.Err(t, err, ErrInvalidCast)

	be.Equal(t, PointerType(1, LValue).RValue(), PointerType(1, RValue))
	be.Equal(t, intArray(2).RValue(), intArray(2))
}

func TestTypeFromSpec(t *testing.T) {
	tests := []struct {
		ts   TypeSpec
		want Type
	}{
		{TypeSpec{}, IntType(LValue)},
		{TypeSpec{Stars: 2}, PointerType(2, LValue)},
		{TypeSpec{Dims: dims("4")}, intArray(4)},
		{TypeSpec{Dims: dims("2", "3")}, intArray(2, 3)},
		{TypeSpec{Stars: 1, Dims: dims("2")}, ArrayType(PointerType(1, LValue), 2)},
	}
	for _, test := range tests {
		t.Run(test.ts.String(), func(t *testing.T) {
			got, err := TypeFromSpec(&test.ts)
			be.Err(t, err, nil)
			be.Equal(t, got, test.want)
		})
	}
}

func TestTypeFromSpecErrors(t *testing.T) {
	tests := []struct {
		dims []string
		kind ErrorKind
	}{
		{[]string{"0"}, ErrInvalidArrayLength},
		{[]string{"2147483648"}, ErrIntegerTooLarge},
		{[]string{"99999999999999999999"}, ErrIntegerTooLarge},
		{[]string{"1073741824"}, ErrInvalidArrayLength},
		{[]string{"65536", "65536"}, ErrInvalidArrayLength},
	}
	for _, test := range tests {
		t.Run(test.dims[0], func(t *testing.T) {
			_, err := TypeFromSpec(&TypeSpec{Dims: dims(test.dims...)})
			be.Err(t, err, test.kind)
			var semErr *SemanticError
			be.True(t, errors.As(err, &semErr))
		})
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	for depth := 1; depth <= 4; depth++ {
		p := PointerType(depth, LValue)
		ref, err := p.Referenced()
		be.Err(t, err, nil)
		deref, err := ref.Dereferenced()
		be.Err(t, err, nil)
		again, err := deref.Referenced()
		be.Err(t, err, nil)
		be.Equal(t, again, ref)
		be.Equal(t, again.Depth, depth+1)
	}
}

func TestTypeFromSpecErrorPosition(t *testing.T) {
	_, err := TypeFromSpec(&TypeSpec{Dims: dims("2", "0")})
	be.Err(t, err, "error at 1:20: array length must be positive, got 0")

	_, err = TypeFromSpec(&TypeSpec{Dims: dims("99999999999", "2")})
	be.Err(t, err, "error at 1:10: array length 99999999999 is too large")
}
