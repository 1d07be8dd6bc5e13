//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan HAL backend
)
