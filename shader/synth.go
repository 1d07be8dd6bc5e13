// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import "github.com/gogpu/combiner/cc"

// Options adjusts synthesis. The zero value is the default program.
type Options struct {
	// ThreePoint samples textures with the N64 three-point filter when the
	// slot's linear flag is set. Samplers are then always nearest.
	ThreePoint bool
}

// Synthesize builds the program for c. Equal inputs produce equal modules.
func Synthesize(c cc.Combiner, opts Options) *Module {
	m := &Module{
		Combiner: c,
		Layout:   NewLayout(c),
		Textures: c.UsedTextures,
		Uniforms: UniformUsage{
			Noise:  c.NoiseActive(),
			Filter: opts.ThreePoint && c.UsesTexture(),
		},
	}

	for slot, used := range c.UsedTextures {
		if used {
			m.Body = append(m.Body, SampleTexture{Slot: slot, ThreePoint: opts.ThreePoint})
		}
	}

	inputW := c.InputComponents()
	if c.SplitChannels() {
		m.Body = append(m.Body, Combine{
			Width: 4,
			Value: Pack{
				RGB: formulaExpr(c.Color(), 3, inputW),
				A:   formulaExpr(c.AlphaFormula(), 1, inputW),
			},
		})
	} else {
		w := 3
		if c.Alpha {
			w = 4
		}
		m.Body = append(m.Body, Combine{Width: w, Value: formulaExpr(c.Color(), w, inputW)})
	}

	if c.EdgeClip() {
		m.Body = append(m.Body, ClipEdge{Threshold: cc.EdgeThreshold})
	}
	if c.Fog {
		m.Body = append(m.Body, ApplyFog{Alpha: c.Alpha})
	}
	if c.NoiseActive() {
		m.Body = append(m.Body, ApplyNoise{})
	}
	m.Body = append(m.Body, WriteOutput{Alpha: c.Alpha})
	return m
}

// formulaExpr builds f at width w (1 selects the alpha channel class).
func formulaExpr(f cc.Formula, w, inputW int) Expr {
	ref := func(op cc.Operand) Ref { return Ref{Op: op, W: w, InputW: inputW} }
	factor := ref(f.C)
	factor.Scalar = true

	switch f.Shape() {
	case cc.ShapeSingle:
		return ref(f.D)
	case cc.ShapeMultiply:
		return Mul{X: ref(f.A), Y: factor}
	case cc.ShapeMix:
		return Mix{X: ref(f.B), Y: ref(f.A), T: factor}
	}
	return Add{
		X: Mul{X: Sub{X: ref(f.A), Y: ref(f.B)}, Y: factor},
		Y: ref(f.D),
	}
}
