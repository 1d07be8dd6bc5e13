// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import "github.com/gogpu/combiner/cc"

// Module is the target-independent form of one combiner program.
type Module struct {
	Combiner cc.Combiner
	Layout   Layout

	// Textures lists which slots the fragment stage samples.
	Textures [2]bool

	// Uniforms reports which uniform groups the fragment stage reads.
	Uniforms UniformUsage

	// Body is the fragment stage, executed in order.
	Body []Stmt
}

// UniformUsage describes the uniforms a program reads.
type UniformUsage struct {
	// Noise needs noise_frame and noise_scale.
	Noise bool
	// Filter needs tex_info0/tex_info1 for three-point filtering.
	Filter bool
}

// Any reports whether any uniform is read.
func (u UniformUsage) Any() bool { return u.Noise || u.Filter }

// Stmt is one fragment-stage statement.
type Stmt interface{ stmt() }

// SampleTexture declares texValN by sampling slot N at the texture coordinate.
type SampleTexture struct {
	Slot int
	// ThreePoint selects the three-point filter when the slot's linear flag
	// is set at draw time.
	ThreePoint bool
}

// Combine declares texel with Width components and assigns Value.
type Combine struct {
	Width int
	Value Expr
}

// ClipEdge forces texel alpha to 1 above Threshold and discards otherwise.
type ClipEdge struct {
	Threshold float32
}

// ApplyFog blends texel RGB toward the fog color by the fog alpha.
type ApplyFog struct {
	// Alpha is set when texel has four components.
	Alpha bool
}

// ApplyNoise multiplies texel alpha by the screen-space noise mask.
type ApplyNoise struct{}

// WriteOutput returns texel, forcing alpha to 1 when Alpha is unset.
type WriteOutput struct {
	Alpha bool
}

func (SampleTexture) stmt() {}
func (Combine) stmt()       {}
func (ClipEdge) stmt()      {}
func (ApplyFog) stmt()      {}
func (ApplyNoise) stmt()    {}
func (WriteOutput) stmt()   {}

// Expr is a combiner expression.
type Expr interface {
	// Width is the number of components, 1 for scalars.
	Width() int
}

// Ref reads one combiner operand.
type Ref struct {
	Op cc.Operand
	// W is the number of components the expression needs.
	W int
	// InputW is the declared width of the interpolated inputs.
	InputW int
	// Scalar allows a broadcast operand (TEXEL0A) to stay scalar. Set for
	// the C operand, which is only ever multiplied or used as a mix factor.
	Scalar bool
}

// Sub is X - Y.
type Sub struct{ X, Y Expr }

// Mul is X * Y.
type Mul struct{ X, Y Expr }

// Add is X + Y.
type Add struct{ X, Y Expr }

// Mix is the linear interpolation from X to Y by T.
type Mix struct{ X, Y, T Expr }

// Pack builds a four-component value from a three-component RGB and a scalar.
type Pack struct{ RGB, A Expr }

func (r Ref) Width() int { return r.W }
func (s Sub) Width() int { return s.X.Width() }
func (m Mul) Width() int { return m.X.Width() }
func (a Add) Width() int { return a.X.Width() }
func (m Mix) Width() int { return m.X.Width() }
func (Pack) Width() int  { return 4 }
