// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import "github.com/gogpu/gputypes"

// Config configures a Device.
type Config struct {
	// Label prefixes the debug names of GPU objects.
	Label string

	// Backend selects the HAL backend opened by Init when no device was
	// injected. Ignored by NewWithHAL and NewFromProvider.
	Backend gputypes.Backend

	// SurfaceFormat is the color target format.
	SurfaceFormat gputypes.TextureFormat

	// DepthFormat is the depth buffer format.
	DepthFormat gputypes.TextureFormat

	// SampleCount is the MSAA sample count, 1 or 4.
	SampleCount uint32

	// VertexArenaSize is the per-frame vertex buffer size in bytes. Draws
	// that do not fit flush the frame and start over.
	VertexArenaSize uint64

	// UniformSlots is the number of per-draw uniform blocks per frame.
	UniformSlots int

	// BindGroupCacheSize bounds the number of live bind groups.
	BindGroupCacheSize int
}

// DefaultConfig returns the configuration used by the registered backend.
func DefaultConfig() Config {
	return Config{
		Label:              "combiner",
		Backend:            gputypes.BackendVulkan,
		SurfaceFormat:      gputypes.TextureFormatBGRA8Unorm,
		DepthFormat:        gputypes.TextureFormatDepth24Plus,
		SampleCount:        1,
		VertexArenaSize:    4 << 20,
		UniformSlots:       1024,
		BindGroupCacheSize: 256,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Label == "" {
		c.Label = d.Label
	}
	if c.SurfaceFormat == gputypes.TextureFormatUndefined {
		c.SurfaceFormat = d.SurfaceFormat
	}
	if c.DepthFormat == gputypes.TextureFormatUndefined {
		c.DepthFormat = d.DepthFormat
	}
	if c.SampleCount == 0 {
		c.SampleCount = d.SampleCount
	}
	if c.VertexArenaSize == 0 {
		c.VertexArenaSize = d.VertexArenaSize
	}
	if c.UniformSlots <= 0 {
		c.UniformSlots = d.UniformSlots
	}
	if c.BindGroupCacheSize <= 0 {
		c.BindGroupCacheSize = d.BindGroupCacheSize
	}
	return c
}
