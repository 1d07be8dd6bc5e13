// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cc decodes N64 RDP color-combiner mode words.
//
// A mode word packs two combiner formulas of the form (A - B) * C + D and a
// handful of feature flags into 32 bits:
//
//	bits  0..11  color formula  (A, B, C, D; 3 bits each)
//	bits 12..23  alpha formula  (A, B, C, D; 3 bits each)
//	bit  24      FlagAlpha
//	bit  25      FlagFog
//	bit  26      FlagTextureEdge
//	bit  27      FlagNoise
//
// Decoding is total: every 32-bit value decodes to a valid [Combiner].
// Each [Formula] is classified into a [Shape] so shader emitters can skip
// degenerate arithmetic without changing the result.
//
// Example:
//
//	m := cc.Pack(
//	    cc.Formula{A: cc.Texel0, B: cc.Zero, C: cc.Input1, D: cc.Zero},
//	    cc.Formula{D: cc.Input1},
//	    0,
//	)
//	c := cc.Decode(m)
//	fmt.Println(c.Color().Shape()) // multiply
package cc
