// Package backend provides the rendering device abstraction used by the
// combiner core.
//
// A [Device] is the narrow per-API surface a renderer drives: it compiles
// generated programs, owns textures and samplers, and executes draws with
// the state the core reconciles before each one. The core never talks to a
// graphics API directly.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The recorder backend is automatically registered on import; the GPU
// backend registers itself when its package is linked in:
//
//	import _ "github.com/gogpu/combiner/backend/wgpu"
//
// # Backend Selection
//
// Use Default() to get the best available device, or Get() to request
// a specific backend by name:
//
//	d := backend.Default()
//	d = backend.Get("recorder")
//
// # Available Backends
//
//   - "wgpu": GPU device on the gogpu/wgpu HAL, WGSL compiled with naga
//   - "recorder": executes nothing and records every call (tests, headless runs)
package backend
