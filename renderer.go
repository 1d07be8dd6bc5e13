package combiner

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/combiner/cc"
	"github.com/gogpu/combiner/shader"
)

// Renderer is the rendering API a display-list interpreter drives: it
// builds combiner programs on demand, tracks textures, and draws triangle
// batches with the least device state churn.
//
// A Renderer is used from one goroutine.
type Renderer struct {
	dev     backend.Device
	ownsDev bool
	opts    options
	fatal   func(error)

	cache   *ProgramCache
	slots   *SlotTable
	tracker *StateTracker
	noise   NoiseCounter

	width  int
	height int

	depthTest bool
	depthMask bool
	decal     bool

	initialized bool
	inFrame     bool
	closed      bool
	frames      uint64
}

// NewRenderer creates a Renderer. The device comes from WithDevice, then
// WithDeviceName, then the registry default.
func NewRenderer(opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}

	dev := o.device
	owns := false
	switch {
	case dev != nil:
	case o.deviceName != "":
		dev = backend.Get(o.deviceName)
		if dev == nil {
			return nil, fmt.Errorf("%w: %q", backend.ErrBackendNotAvailable, o.deviceName)
		}
		owns = true
	default:
		dev = backend.Default()
		if dev == nil {
			return nil, backend.ErrBackendNotAvailable
		}
		owns = true
	}

	fatal := o.fatal
	if fatal == nil {
		fatal = func(err error) { panic(err) }
	}

	r := &Renderer{
		dev:     dev,
		ownsDev: owns,
		opts:    o,
		fatal:   fatal,
		width:   o.width,
		height:  o.height,
	}
	r.cache = NewProgramCache(dev, o.programCapacity, shader.Options{ThreePoint: o.threePoint}, fatal)
	r.slots = NewSlotTable(dev, o.threePoint)
	r.tracker = NewStateTracker(dev, r.slots)
	trackRenderer(r)
	return r, nil
}

// Device returns the device the Renderer draws on.
func (r *Renderer) Device() backend.Device { return r.dev }

// Programs returns the program cache.
func (r *Renderer) Programs() *ProgramCache { return r.cache }

// Slots returns the texture slot table.
func (r *Renderer) Slots() *SlotTable { return r.slots }

// Tracker returns the state tracker.
func (r *Renderer) Tracker() *StateTracker { return r.tracker }

// ZIsFrom0To1 reports whether clip-space depth spans [0, 1] on the device.
func (r *Renderer) ZIsFrom0To1() bool { return r.dev.ZIsFrom0To1() }

// Size returns the framebuffer size.
func (r *Renderer) Size() (width, height int) { return r.width, r.height }

// Init initializes the device for the configured framebuffer size.
func (r *Renderer) Init() error {
	if r.closed {
		return ErrClosed
	}
	if err := r.dev.Init(r.width, r.height); err != nil {
		return fmt.Errorf("combiner: init %s device: %w", r.dev.Name(), err)
	}
	r.initialized = true
	Logger().Info("combiner: renderer initialized",
		"device", r.dev.Name(),
		"target", r.dev.Target(),
		"width", r.width,
		"height", r.height,
		"three_point", r.opts.threePoint)
	return nil
}

// OnResize adapts the framebuffer to a new window size.
func (r *Renderer) OnResize(width, height int) error {
	if r.closed {
		return ErrClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("combiner: invalid size %dx%d", width, height)
	}
	if r.initialized {
		if err := r.dev.Resize(width, height); err != nil {
			return fmt.Errorf("combiner: resize: %w", err)
		}
	}
	r.width, r.height = width, height
	return nil
}

// LookupShader returns the program built for m, or nil.
func (r *Renderer) LookupShader(m cc.ModeWord) *Program { return r.cache.Lookup(m) }

// CreateAndLoadNewShader builds the program for m and loads it. Build
// failures go to the fatal handler; if that returns, the result is nil.
func (r *Renderer) CreateAndLoadNewShader(m cc.ModeWord) *Program {
	p := r.cache.GetOrBuild(m)
	if p != nil {
		r.LoadShader(p)
	}
	return p
}

// LoadShader makes p the program of the next draws.
func (r *Renderer) LoadShader(p *Program) { r.tracker.SetProgram(p) }

// UnloadShader releases p as the current program. The program stays in
// the cache.
func (r *Renderer) UnloadShader(p *Program) {
	if r.tracker.Program() == p {
		r.tracker.SetProgram(nil)
	}
}

// ShaderInfo returns the interpolated input count and texture slot usage
// of p.
func (r *Renderer) ShaderInfo(p *Program) (numInputs int, usedTextures [2]bool) {
	if p == nil {
		return 0, [2]bool{}
	}
	return p.NumInputs, p.UsedTextures
}

// NewTexture allocates a texture id.
func (r *Renderer) NewTexture() TextureID { return r.slots.NewTexture() }

// SelectTexture binds id to slot and makes slot the upload target.
func (r *Renderer) SelectTexture(slot int, id TextureID) error {
	if err := r.slots.Select(slot, id); err != nil {
		Logger().Warn("combiner: select texture", "slot", slot, "id", id, "err", err)
		return err
	}
	return nil
}

// UploadTexture replaces the selected texture with tightly packed RGBA8
// pixels.
func (r *Renderer) UploadTexture(pixels []byte, width, height int) error {
	return r.resourceError(r.slots.Upload(pixels, width, height))
}

// SetSamplerParameters sets the filter of the texture selected into slot
// and its addressing from the N64 tile cms and cmt flags.
func (r *Renderer) SetSamplerParameters(slot int, linear bool, cms, cmt uint32) error {
	return r.resourceError(r.slots.SetSamplerParameters(slot, linear, WrapFromTileFlags(cms), WrapFromTileFlags(cmt)))
}

// resourceError logs contract violations and routes device failures to
// the fatal handler when so configured.
func (r *Renderer) resourceError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBadSlot) || errors.Is(err, ErrNoTexture) {
		Logger().Warn("combiner: texture contract violation", "err", err)
		return err
	}
	if r.opts.fatalOnResource {
		r.fatal(err)
	}
	return err
}

// SetDepthTest enables the LEQUAL depth test. Depth writes also need
// SetDepthMask.
func (r *Renderer) SetDepthTest(enabled bool) {
	r.depthTest = enabled
	r.tracker.SetDepth(r.depthTest, r.depthMask)
}

// SetDepthMask enables depth writes while the depth test is on.
func (r *Renderer) SetDepthMask(enabled bool) {
	r.depthMask = enabled
	r.tracker.SetDepth(r.depthTest, r.depthMask)
}

// SetZModeDecal applies the decal slope bias to the following draws.
func (r *Renderer) SetZModeDecal(decal bool) {
	r.decal = decal
	r.tracker.SetDecal(decal)
}

// SetUseAlpha gates blending for programs with an alpha channel.
func (r *Renderer) SetUseAlpha(useAlpha bool) { r.tracker.SetUseAlpha(useAlpha) }

// flipY converts a bottom-up rectangle origin for devices with a top-left
// origin.
func (r *Renderer) flipY(y, height int) int {
	if r.dev.YFlip() {
		return r.height - y - height
	}
	return y
}

// SetViewport sets the viewport in bottom-up window coordinates.
func (r *Renderer) SetViewport(x, y, width, height int) {
	r.dev.SetViewport(x, r.flipY(y, height), width, height)
}

// SetScissor sets the scissor rectangle in bottom-up window coordinates.
func (r *Renderer) SetScissor(x, y, width, height int) {
	r.dev.SetScissor(x, r.flipY(y, height), width, height)
}

// DrawTriangles draws triangles from the first floatCount floats of
// vertices with the loaded program.
func (r *Renderer) DrawTriangles(vertices []float32, floatCount, triangles int) error {
	if r.closed {
		return ErrClosed
	}
	if !r.inFrame {
		return ErrNoFrame
	}
	return r.tracker.Draw(vertices, floatCount, triangles)
}

// StartFrame clears the framebuffer, advances the noise counter and
// pushes the frame constants. The noise scale follows the window height.
// Draw state carries over from the previous frame.
func (r *Renderer) StartFrame() error {
	if r.closed {
		return ErrClosed
	}
	if !r.initialized {
		return ErrNotInitialized
	}
	fc := backend.FrameConstants{
		NoiseFrame: float32(r.noise.Advance()),
		NoiseScale: NoiseScale(r.height),
	}
	if err := r.dev.StartFrame(fc); err != nil {
		return fmt.Errorf("combiner: start frame: %w", err)
	}
	r.inFrame = true
	r.frames++
	return nil
}

// EndFrame submits the frame.
func (r *Renderer) EndFrame() error {
	if !r.inFrame {
		return ErrNoFrame
	}
	r.inFrame = false
	if err := r.dev.EndFrame(); err != nil {
		return fmt.Errorf("combiner: end frame: %w", err)
	}
	return nil
}

// FinishRender waits for the submitted frame to complete.
func (r *Renderer) FinishRender() {
	if r.initialized && !r.closed {
		r.dev.FinishRender()
	}
}

// Close releases programs, textures and samplers, and the device when
// the Renderer created it.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	untrackRenderer(r)
	Logger().Info("combiner: renderer closed", "stats", r.Stats())
	r.cache.Each(r.tracker.Forget)
	r.cache.Close()
	r.slots.Close()
	if r.ownsDev {
		r.dev.Close()
	}
}

// RendererStats summarizes a Renderer.
type RendererStats struct {
	Frames     uint64
	NoiseFrame uint32
	Programs   int
	Compiles   uint64
	CacheHits  uint64
	State      StateStats
}

// LogValue implements slog.LogValuer.
func (s RendererStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("frames", s.Frames),
		slog.Any("noise_frame", s.NoiseFrame),
		slog.Int("programs", s.Programs),
		slog.Uint64("compiles", s.Compiles),
		slog.Uint64("cache_hits", s.CacheHits),
		slog.Any("state", s.State),
	)
}

// Stats returns counters of the Renderer.
func (r *Renderer) Stats() RendererStats {
	return RendererStats{
		Frames:     r.frames,
		NoiseFrame: r.noise.Frame(),
		Programs:   r.cache.Len(),
		Compiles:   r.cache.Compiles(),
		CacheHits:  r.cache.Hits(),
		State:      r.tracker.Stats(),
	}
}
