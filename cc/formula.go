// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cc

import "fmt"

// Formula is one combiner equation (A - B) * C + D.
type Formula struct {
	A, B, C, D Operand
}

func (f Formula) bits() uint32 {
	return uint32(f.A&selectorMask) |
		uint32(f.B&selectorMask)<<selectorBits |
		uint32(f.C&selectorMask)<<(2*selectorBits) |
		uint32(f.D&selectorMask)<<(3*selectorBits)
}

func unpackFormula(bits uint32) Formula {
	return Formula{
		A: Operand(bits & selectorMask),
		B: Operand(bits >> selectorBits & selectorMask),
		C: Operand(bits >> (2 * selectorBits) & selectorMask),
		D: Operand(bits >> (3 * selectorBits) & selectorMask),
	}
}

// Operands returns A, B, C and D in order.
func (f Formula) Operands() [selectorCount]Operand {
	return [selectorCount]Operand{f.A, f.B, f.C, f.D}
}

// Shape classifies f. The first matching rule wins.
func (f Formula) Shape() Shape {
	switch {
	case f.C == Zero:
		return ShapeSingle
	case f.B == Zero && f.D == Zero:
		return ShapeMultiply
	case f.B == f.D:
		return ShapeMix
	}
	return ShapeAffine
}

// String renders f using the shortest form for its shape.
func (f Formula) String() string {
	switch f.Shape() {
	case ShapeSingle:
		return f.D.String()
	case ShapeMultiply:
		return fmt.Sprintf("%s * %s", f.A, f.C)
	case ShapeMix:
		return fmt.Sprintf("mix(%s, %s, %s)", f.B, f.A, f.C)
	}
	return fmt.Sprintf("(%s - %s) * %s + %s", f.A, f.B, f.C, f.D)
}

// Shape is the simplified form of a formula.
type Shape uint8

// Formula shapes in classification priority order.
const (
	// ShapeSingle selects D because C is zero.
	ShapeSingle Shape = iota
	// ShapeMultiply is A * C because B and D are zero.
	ShapeMultiply
	// ShapeMix is mix(B, A, C) because B equals D.
	ShapeMix
	// ShapeAffine is the full (A - B) * C + D.
	ShapeAffine
)

func (s Shape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeMultiply:
		return "multiply"
	case ShapeMix:
		return "mix"
	case ShapeAffine:
		return "affine"
	}
	return fmt.Sprintf("Shape(%d)", uint8(s))
}

// Apply evaluates the shortcut expression for s on operand values a, b, c, d.
// Operands the shape ignores are assumed to carry the value the
// classification rule implies (zero, or b == d).
func (s Shape) Apply(a, b, c, d float32) float32 {
	switch s {
	case ShapeSingle:
		return d
	case ShapeMultiply:
		return a * c
	case ShapeMix:
		return b + (a-b)*c
	}
	return ApplyAffine(a, b, c, d)
}

// ApplyAffine evaluates the literal combiner equation.
func ApplyAffine(a, b, c, d float32) float32 {
	return (a-b)*c + d
}
