package backend

import (
	"fmt"

	"github.com/gogpu/combiner/shader"
	"github.com/gogpu/gputypes"
)

// init registers the recorder backend on package import.
func init() {
	Register(BackendRecorder, func() Device {
		return NewRecorder(shader.TargetWGSL)
	})
}

// Recorded is a resource created by a Recorder.
type Recorded struct {
	ID   uint64
	Kind string

	// Program fields.
	Source *shader.Source
	Blend  *gputypes.BlendState

	// Texture fields.
	Pixels        []byte
	Width, Height int

	// Sampler fields.
	Sampler SamplerDescriptor

	Destroyed bool
	owner     *Recorder
}

// Label returns "kind#id".
func (r *Recorded) Label() string { return fmt.Sprintf("%s#%d", r.Kind, r.ID) }

// RecordedState is the state a Recorder applies to the next draw.
type RecordedState struct {
	Viewport    [4]int
	Scissor     [4]int
	DepthTest   bool
	DepthMask   bool
	Decal       bool
	Blend       bool
	Program     *Recorded
	Textures    [2]*Recorded
	Samplers    [2]*Recorded
	Filter      FilterUniforms
	Stride      uint64
	Topology    gputypes.PrimitiveTopology
	VertexCount uint32
	Vertices    []float32
}

// Recorder is a device that executes nothing and records every call. It
// backs headless runs and tests of the state tracker.
type Recorder struct {
	target      shader.Target
	initialized bool
	width       int
	height      int
	nextID      uint64
	live        int

	// TopLeft makes YFlip report a top-left origin.
	TopLeft bool

	// FailCompile, when set, is consulted by CompileProgram; a non-nil
	// result fails the build.
	FailCompile func(src *shader.Source) error

	// Calls counts calls by method name.
	Calls map[string]int
	// Log lists state-changing calls in order.
	Log []string

	State  RecordedState
	Draws  []RecordedState
	Frames []FrameConstants
}

// NewRecorder creates a recorder that accepts programs for target.
func NewRecorder(target shader.Target) *Recorder {
	return &Recorder{target: target, Calls: make(map[string]int)}
}

func (r *Recorder) note(name string) {
	r.Calls[name]++
	r.Log = append(r.Log, name)
}

// Live returns the number of resources created and not destroyed.
func (r *Recorder) Live() int { return r.live }

// Size returns the framebuffer size passed to Init or Resize.
func (r *Recorder) Size() (width, height int) { return r.width, r.height }

// Reset clears the call counters, the log and the recorded draws.
func (r *Recorder) Reset() {
	r.Calls = make(map[string]int)
	r.Log = nil
	r.Draws = nil
}

func (r *Recorder) Name() string          { return BackendRecorder }
func (r *Recorder) Target() shader.Target { return r.target }
func (r *Recorder) ZIsFrom0To1() bool     { return r.target != shader.TargetGLSL }
func (r *Recorder) YFlip() bool           { return r.TopLeft }

// Init initializes the recorder.
func (r *Recorder) Init(width, height int) error {
	r.note("Init")
	r.initialized = true
	r.width, r.height = width, height
	return nil
}

// Resize records the new framebuffer size.
func (r *Recorder) Resize(width, height int) error {
	r.note("Resize")
	r.width, r.height = width, height
	return nil
}

// Close marks the recorder uninitialized.
func (r *Recorder) Close() {
	r.note("Close")
	r.initialized = false
}

func (r *Recorder) create(kind string) *Recorded {
	r.nextID++
	r.live++
	return &Recorded{ID: r.nextID, Kind: kind, owner: r}
}

// CompileProgram records a program.
func (r *Recorder) CompileProgram(src *shader.Source, blend *gputypes.BlendState) (Resource, error) {
	r.note("CompileProgram")
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	if src.Target != r.target {
		return nil, &CompileError{Mode: src.Mode, Target: src.Target, Err: ErrWrongTarget}
	}
	if r.FailCompile != nil {
		if err := r.FailCompile(src); err != nil {
			return nil, &CompileError{Mode: src.Mode, Target: src.Target, Log: "rejected by recorder", Err: err}
		}
	}
	p := r.create("program")
	p.Source = src
	p.Blend = blend
	return p, nil
}

// CreateTexture records a texture and keeps a copy of its pixels.
func (r *Recorder) CreateTexture(rgba []byte, width, height int) (Resource, error) {
	r.note("CreateTexture")
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	if width <= 0 || height <= 0 || len(rgba) < width*height*4 {
		return nil, fmt.Errorf("backend: texture %dx%d with %d bytes", width, height, len(rgba))
	}
	t := r.create("texture")
	t.Pixels = append([]byte(nil), rgba[:width*height*4]...)
	t.Width, t.Height = width, height
	return t, nil
}

// CreateSampler records a sampler.
func (r *Recorder) CreateSampler(desc SamplerDescriptor) (Resource, error) {
	r.note("CreateSampler")
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	s := r.create("sampler")
	s.Sampler = desc
	return s, nil
}

// Destroy marks a resource destroyed.
func (r *Recorder) Destroy(res Resource) {
	rec, ok := res.(*Recorded)
	if !ok || rec == nil || rec.owner != r || rec.Destroyed {
		return
	}
	r.note("Destroy")
	rec.Destroyed = true
	r.live--
}

// StartFrame records the frame constants.
func (r *Recorder) StartFrame(fc FrameConstants) error {
	r.note("StartFrame")
	if !r.initialized {
		return ErrNotInitialized
	}
	r.Frames = append(r.Frames, fc)
	return nil
}

func (r *Recorder) EndFrame() error {
	r.note("EndFrame")
	if !r.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (r *Recorder) FinishRender() { r.note("FinishRender") }

func (r *Recorder) SetViewport(x, y, width, height int) {
	r.note("SetViewport")
	r.State.Viewport = [4]int{x, y, width, height}
}

func (r *Recorder) SetScissor(x, y, width, height int) {
	r.note("SetScissor")
	r.State.Scissor = [4]int{x, y, width, height}
}

func (r *Recorder) SetDepthStencil(test, mask bool) {
	r.note("SetDepthStencil")
	r.State.DepthTest, r.State.DepthMask = test, mask
}

func (r *Recorder) SetDecal(decal bool) {
	r.note("SetDecal")
	r.State.Decal = decal
}

func (r *Recorder) SetProgram(p Resource) {
	r.note("SetProgram")
	r.State.Program, _ = p.(*Recorded)
}

func (r *Recorder) SetBlend(enabled bool) {
	r.note("SetBlend")
	r.State.Blend = enabled
}

func (r *Recorder) SetTexture(slot int, tex Resource) {
	r.note("SetTexture")
	r.State.Textures[slot], _ = tex.(*Recorded)
}

func (r *Recorder) SetSampler(slot int, s Resource) {
	r.note("SetSampler")
	r.State.Samplers[slot], _ = s.(*Recorded)
}

func (r *Recorder) SetFilterUniforms(u FilterUniforms) {
	r.note("SetFilterUniforms")
	r.State.Filter = u
}

func (r *Recorder) SetVertexStride(bytes uint64) {
	r.note("SetVertexStride")
	r.State.Stride = bytes
}

func (r *Recorder) SetTopology(t gputypes.PrimitiveTopology) {
	r.note("SetTopology")
	r.State.Topology = t
}

// WriteVertices keeps a copy of data for the next draw.
func (r *Recorder) WriteVertices(data []float32) error {
	r.note("WriteVertices")
	r.State.Vertices = append(r.State.Vertices[:0], data...)
	return nil
}

// Draw appends a snapshot of the current state to Draws.
func (r *Recorder) Draw(vertexCount uint32) error {
	r.note("Draw")
	if !r.initialized {
		return ErrNotInitialized
	}
	if r.State.Program == nil {
		return fmt.Errorf("backend: draw without a program")
	}
	st := r.State
	st.VertexCount = vertexCount
	st.Vertices = append([]float32(nil), r.State.Vertices...)
	r.Draws = append(r.Draws, st)
	return nil
}
