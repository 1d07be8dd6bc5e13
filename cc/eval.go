// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cc

// EdgeThreshold is the alpha below which texture-edge fragments are discarded.
const EdgeThreshold = 0.3

// Fragment holds the interpolated values a fragment shader sees.
type Fragment struct {
	Inputs [MaxInputs][4]float32
	Texels [2][4]float32
	Fog    [4]float32
}

// colorValue returns component i of operand o in the color channel class.
func (fr *Fragment) colorValue(o Operand, i int) float32 {
	switch o {
	case Input1, Input2, Input3, Input4:
		return fr.Inputs[o.InputIndex()-1][i]
	case Texel0:
		return fr.Texels[0][i]
	case Texel0Alpha:
		return fr.Texels[0][3]
	case Texel1:
		return fr.Texels[1][i]
	}
	return 0
}

// alphaValue returns operand o in the alpha channel class.
func (fr *Fragment) alphaValue(o Operand) float32 {
	switch o {
	case Input1, Input2, Input3, Input4:
		return fr.Inputs[o.InputIndex()-1][3]
	case Texel0, Texel0Alpha:
		return fr.Texels[0][3]
	case Texel1:
		return fr.Texels[1][3]
	}
	return 0
}

// Evaluate computes the fragment color a program generated for c would
// output, excluding the screen-space noise mask. keep is false when the
// texture-edge test discards the fragment.
func (c Combiner) Evaluate(fr Fragment) (rgba [4]float32, keep bool) {
	f := c.Color()
	shape := f.Shape()
	for i := 0; i < 3; i++ {
		rgba[i] = shape.Apply(
			fr.colorValue(f.A, i), fr.colorValue(f.B, i),
			fr.colorValue(f.C, i), fr.colorValue(f.D, i))
	}

	if !c.Alpha {
		rgba[3] = 1
	} else {
		af := c.AlphaFormula()
		rgba[3] = af.Shape().Apply(
			fr.alphaValue(af.A), fr.alphaValue(af.B),
			fr.alphaValue(af.C), fr.alphaValue(af.D))
	}

	if c.EdgeClip() {
		if rgba[3] <= EdgeThreshold {
			return rgba, false
		}
		rgba[3] = 1
	}

	if c.Fog {
		t := fr.Fog[3]
		for i := 0; i < 3; i++ {
			rgba[i] += (fr.Fog[i] - rgba[i]) * t
		}
	}
	return rgba, true
}
