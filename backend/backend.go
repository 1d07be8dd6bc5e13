package backend

import (
	"errors"
	"fmt"

	"github.com/gogpu/combiner/cc"
	"github.com/gogpu/combiner/shader"
	"github.com/gogpu/gputypes"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrWrongTarget is returned when a program was generated for another
	// shading language than the device consumes.
	ErrWrongTarget = errors.New("backend: source target does not match device")

	// ErrForeignResource is returned when a resource created by another
	// device is passed in.
	ErrForeignResource = errors.New("backend: resource belongs to another device")
)

// DecalSlopeBias is the slope-scaled depth bias applied to decal draws,
// pulling coplanar geometry toward the viewer.
const DecalSlopeBias = -2.0

// CompileError reports a program the device could not build. Log holds the
// compiler output when there is one.
type CompileError struct {
	Mode   cc.ModeWord
	Target shader.Target
	Log    string
	Err    error
}

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("backend: compile %v program %v", e.Target, e.Mode)
	if e.Log != "" {
		msg += ": " + e.Log
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Err }

// Resource is a device-owned object: a program, a texture or a sampler.
// Resources are compared by identity, so devices return pointers.
type Resource interface {
	Label() string
}

// SamplerDescriptor selects filtering and addressing for one texture slot.
type SamplerDescriptor struct {
	Linear bool
	WrapU  gputypes.AddressMode
	WrapV  gputypes.AddressMode
}

// FrameConstants are the per-frame uniform values.
type FrameConstants struct {
	// NoiseFrame is the noise frame counter, 0..150.
	NoiseFrame float32
	// NoiseScale maps window pixels to N64 scanlines (240 / height).
	NoiseScale float32
}

// FilterUniforms are the per-draw three-point filter inputs: (width,
// height, linear, 0) per slot.
type FilterUniforms [2][4]float32

// Device is a rendering device the combiner core drives. It is the narrow
// per-API surface behind a Renderer.
//
// Calls are made from one goroutine. State setters record state for the
// next Draw; the core only calls them when the value changes.
type Device interface {
	// Name returns the backend identifier (e.g., "wgpu", "recorder").
	Name() string

	// Target is the shading language CompileProgram consumes.
	Target() shader.Target

	// ZIsFrom0To1 reports whether clip-space depth spans [0, 1].
	ZIsFrom0To1() bool

	// YFlip reports a top-left framebuffer origin, so viewport and scissor
	// rectangles given bottom-up must be flipped.
	YFlip() bool

	// Init initializes the device for a framebuffer of the given size.
	Init(width, height int) error

	// Resize adapts the framebuffer-sized resources.
	Resize(width, height int) error

	// Close releases all device resources.
	Close()

	// CompileProgram builds a program from src. blend is nil for opaque
	// programs.
	CompileProgram(src *shader.Source, blend *gputypes.BlendState) (Resource, error)

	// CreateTexture creates a texture from tightly packed RGBA8 pixels.
	CreateTexture(rgba []byte, width, height int) (Resource, error)

	// CreateSampler creates a sampler.
	CreateSampler(desc SamplerDescriptor) (Resource, error)

	// Destroy releases a resource. Destroying nil is a no-op.
	Destroy(r Resource)

	// StartFrame begins a frame: clears color to black and depth to 1.
	StartFrame(fc FrameConstants) error

	// EndFrame submits the frame's work.
	EndFrame() error

	// FinishRender waits for submitted work to complete.
	FinishRender()

	SetViewport(x, y, width, height int)
	SetScissor(x, y, width, height int)
	SetDepthStencil(test, mask bool)
	SetDecal(decal bool)
	SetProgram(p Resource)
	SetBlend(enabled bool)
	SetTexture(slot int, tex Resource)
	SetSampler(slot int, s Resource)
	SetFilterUniforms(u FilterUniforms)
	SetVertexStride(bytes uint64)
	SetTopology(t gputypes.PrimitiveTopology)

	// WriteVertices replaces the vertex data used by the next Draw.
	WriteVertices(data []float32) error

	// Draw issues vertexCount vertices with the recorded state.
	Draw(vertexCount uint32) error
}
