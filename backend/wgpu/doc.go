// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu implements backend.Device on the Pure Go gogpu/wgpu HAL.
//
// Programs arrive as WGSL, are compiled to SPIR-V with naga and become
// shader modules. Render pipelines are created lazily: each combination of
// program, depth test, depth mask, decal, blend and topology seen by a
// draw is built once and cached until the program is destroyed.
//
// All programs share one bind group layout: a dynamic-offset uniform block
// at binding 0, then texture and sampler pairs for slots 0 and 1. Bind
// groups are cached per bound texture/sampler combination in an LRU; slots
// with nothing bound get a white 1x1 placeholder.
//
// Vertices and uniform blocks are written into per-frame arenas. A frame
// that outgrows either is submitted and resumed in a new render pass that
// keeps the attachments.
//
// Importing the package registers the "wgpu" backend:
//
//	import _ "github.com/gogpu/combiner/backend/wgpu"
//
// A host that already owns a device shares it with [NewFromProvider] or
// [NewWithHAL] and renders into its surface with [Device.SetRenderTarget].
//
// Build with the nogpu tag to leave out the Vulkan HAL.
package wgpu
