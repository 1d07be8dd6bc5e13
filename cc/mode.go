// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cc

import "fmt"

// ModeWord is a packed combiner configuration. It is the cache key for
// compiled programs: equal words always produce identical programs.
type ModeWord uint32

// Feature flags stored above the two packed formulas.
const (
	FlagAlpha       ModeWord = 1 << 24
	FlagFog         ModeWord = 1 << 25
	FlagTextureEdge ModeWord = 1 << 26
	FlagNoise       ModeWord = 1 << 27

	flagMask = FlagAlpha | FlagFog | FlagTextureEdge | FlagNoise
)

const (
	selectorBits  = 3
	selectorMask  = 1<<selectorBits - 1
	formulaBits   = 4 * selectorBits
	formulaMask   = 1<<formulaBits - 1
	alphaShift    = formulaBits
	selectorCount = 4
)

// Has reports whether all bits of flag are set in m.
func (m ModeWord) Has(flag ModeWord) bool { return m&flag == flag }

// Flags returns only the feature flag bits of m.
func (m ModeWord) Flags() ModeWord { return m & flagMask }

// String returns m as a fixed-width hexadecimal literal.
func (m ModeWord) String() string { return fmt.Sprintf("0x%08x", uint32(m)) }

// Pack builds a mode word from a color formula, an alpha formula and flags.
// Bits of flags outside the four feature flags are dropped.
func Pack(color, alpha Formula, flags ModeWord) ModeWord {
	return ModeWord(color.bits()) | ModeWord(alpha.bits())<<alphaShift | flags&flagMask
}

// Operand selects one combiner input. All eight 3-bit values are valid.
type Operand uint8

// Combiner operands.
const (
	Zero Operand = iota
	Input1
	Input2
	Input3
	Input4
	Texel0
	Texel0Alpha
	Texel1
)

// MaxInputs is the number of interpolated vertex inputs the combiner can use.
const MaxInputs = 4

var operandNames = [...]string{
	Zero:        "ZERO",
	Input1:      "INPUT1",
	Input2:      "INPUT2",
	Input3:      "INPUT3",
	Input4:      "INPUT4",
	Texel0:      "TEXEL0",
	Texel0Alpha: "TEXEL0A",
	Texel1:      "TEXEL1",
}

// String returns the operand mnemonic.
func (o Operand) String() string {
	if int(o) < len(operandNames) {
		return operandNames[o]
	}
	return fmt.Sprintf("Operand(%d)", uint8(o))
}

// IsInput reports whether o is one of Input1..Input4.
func (o Operand) IsInput() bool { return o >= Input1 && o <= Input4 }

// InputIndex returns the 1-based interpolated input number, or 0 if o is not
// an input.
func (o Operand) InputIndex() int {
	if !o.IsInput() {
		return 0
	}
	return int(o)
}

// TextureSlot returns the texture slot o samples and true, or -1 and false.
func (o Operand) TextureSlot() (int, bool) {
	switch o {
	case Texel0, Texel0Alpha:
		return 0, true
	case Texel1:
		return 1, true
	}
	return -1, false
}
