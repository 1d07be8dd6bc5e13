// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shader turns decoded combiner modes into shader programs.
//
// Synthesis happens in two steps. [Synthesize] builds a [Module], a small
// target-independent description of the program: the vertex attribute
// layout, the uniforms it needs, and the fragment statements (texture
// sampling, the combiner expression, edge clipping, fog, noise, output).
// [Emit] then renders a Module as source text for one [Target]. Every
// target renders the same statements with the same operand names, so the
// programs stay semantically identical across graphics APIs.
//
// Nothing here touches a GPU. [Validate] and [Translate] run the WGSL
// rendering through naga for checking and cross-compilation.
package shader
