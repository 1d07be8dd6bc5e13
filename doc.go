// Package combiner emulates the color combiner of the Nintendo 64 RDP on
// modern GPUs.
//
// # Overview
//
// The RDP computes each pixel as (A - B) * C + D over a small set of
// inputs: texels of two texture slots, interpolated vertex colors and
// constants. A display-list interpreter encodes the active combiner setup
// as a 32-bit mode word ([cc.ModeWord]). combiner turns every mode word it
// meets into a GPU program, keeps the programs for the lifetime of the
// renderer, and draws triangle batches with them.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/combiner"
//	    _ "github.com/gogpu/combiner/backend/wgpu"
//	)
//
//	r, err := combiner.NewRenderer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	if err := r.Init(); err != nil {
//	    log.Fatal(err)
//	}
//
//	r.StartFrame()
//	p := r.CreateAndLoadNewShader(mode)
//	r.DrawTriangles(vertices, len(vertices), len(vertices)/(3*p.NumFloats))
//	r.EndFrame()
//	r.FinishRender()
//
// # Architecture
//
// The module is organized into:
//   - cc: mode word decoding, formula shapes, CPU reference evaluation
//   - shader: program IR, GLSL/HLSL/WGSL emitters, vertex layout, naga
//   - backend: the Device contract, registry and a recording device
//   - backend/wgpu: the device on the gogpu/wgpu HAL
//   - combiner: program cache, state tracker, texture slots, Renderer
//
// # Vertex Layout
//
// Each vertex is a clip-space position (4 floats), then texture
// coordinates (2 floats) when a texture is sampled, then fog color and
// factor (4 floats) with FOG, then each interpolated input with 3 floats,
// or 4 with ALPHA. [Program.NumFloats] is the resulting stride.
//
// # Coordinate System
//
// Viewport and scissor rectangles are given with a bottom-left origin.
// Devices reporting a top-left origin get them flipped against the current
// framebuffer height.
//
// # Logging
//
// combiner is silent by default. Use [SetLogger] to route its log records
// to any slog handler.
package combiner
