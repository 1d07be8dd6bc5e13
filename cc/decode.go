// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cc

// Formula indices inside Combiner.Formulas.
const (
	ColorFormula = 0
	AlphaFormula = 1
)

// Combiner is a decoded mode word.
type Combiner struct {
	Mode ModeWord

	// Formulas holds the color formula (bits 0..11) and the alpha formula
	// (bits 12..23).
	Formulas [2]Formula

	Alpha       bool
	Fog         bool
	TextureEdge bool
	Noise       bool

	// NumInputs is the highest interpolated input referenced by either
	// formula, 0..4.
	NumInputs int

	// UsedTextures reports which texture slots either formula samples.
	UsedTextures [2]bool

	// ColorAlphaSame is set when both formulas are bit-identical, so one
	// four-component expression computes color and alpha together.
	ColorAlphaSame bool
}

// Decode unpacks m. It never fails: unused bits are ignored.
func Decode(m ModeWord) Combiner {
	c := Combiner{
		Mode: m,
		Formulas: [2]Formula{
			unpackFormula(uint32(m) & formulaMask),
			unpackFormula(uint32(m) >> alphaShift & formulaMask),
		},
		Alpha:          m.Has(FlagAlpha),
		Fog:            m.Has(FlagFog),
		TextureEdge:    m.Has(FlagTextureEdge),
		Noise:          m.Has(FlagNoise),
		ColorAlphaSame: uint32(m)&formulaMask == uint32(m)>>alphaShift&formulaMask,
	}
	for _, f := range c.Formulas {
		for _, op := range f.Operands() {
			if n := op.InputIndex(); n > c.NumInputs {
				c.NumInputs = n
			}
			if slot, ok := op.TextureSlot(); ok {
				c.UsedTextures[slot] = true
			}
		}
	}
	return c
}

// Color returns the formula driving the color channels.
func (c Combiner) Color() Formula { return c.Formulas[ColorFormula] }

// AlphaFormula returns the formula driving the alpha channel.
func (c Combiner) AlphaFormula() Formula { return c.Formulas[AlphaFormula] }

// UsesTexture reports whether any texture slot is sampled.
func (c Combiner) UsesTexture() bool { return c.UsedTextures[0] || c.UsedTextures[1] }

// SplitChannels reports whether color and alpha need separate expressions.
func (c Combiner) SplitChannels() bool { return c.Alpha && !c.ColorAlphaSame }

// EdgeClip reports whether the alpha edge test runs. It needs alpha output.
func (c Combiner) EdgeClip() bool { return c.TextureEdge && c.Alpha }

// NoiseActive reports whether dithered alpha noise runs. It needs alpha output.
func (c Combiner) NoiseActive() bool { return c.Noise && c.Alpha }

// InputComponents is the width of every interpolated input: 4 with alpha,
// otherwise 3.
func (c Combiner) InputComponents() int {
	if c.Alpha {
		return 4
	}
	return 3
}
