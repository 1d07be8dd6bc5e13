// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/combiner/internal/lru"
	"github.com/gogpu/combiner/shader"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device errors.
var (
	// ErrNoFrame is returned when a draw is issued outside StartFrame/EndFrame.
	ErrNoFrame = errors.New("wgpu: no frame in progress")

	// ErrNoProgram is returned by Draw when no program is set.
	ErrNoProgram = errors.New("wgpu: draw without a program")

	// ErrFrameInProgress is returned by operations that cannot run while a
	// render pass is open.
	ErrFrameInProgress = errors.New("wgpu: frame in progress")

	// ErrVertexOverflow is returned when one batch exceeds the vertex arena.
	ErrVertexOverflow = errors.New("wgpu: vertex batch larger than arena")

	// ErrStrideMismatch is returned when the vertex stride set for a draw
	// differs from the stride of the bound program's layout.
	ErrStrideMismatch = errors.New("wgpu: vertex stride does not match program layout")

	// ErrProviderNoHAL is returned when a gpucontext.DeviceProvider does not
	// expose HAL objects.
	ErrProviderNoHAL = errors.New("wgpu: provider does not expose a HAL device")

	// ErrNoAdapter is returned when the selected HAL backend reports no adapter.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")
)

// uniformAlign is the dynamic uniform offset alignment.
const uniformAlign = 256

// init registers the GPU backend on package import.
func init() {
	backend.Register(backend.BackendWGPU, func() backend.Device {
		return New(DefaultConfig())
	})
}

// halProvider is implemented by device providers that expose HAL objects.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// attachment is a texture with its default view.
type attachment struct {
	tex  hal.Texture
	view hal.TextureView
}

// bindKey identifies the texture and sampler bound to each slot. Zero
// selects the placeholder.
type bindKey struct {
	tex  [2]uint64
	samp [2]uint64
}

// drawState is the state applied by the next Draw.
type drawState struct {
	viewport  [4]int
	scissor   [4]int
	depthTest bool
	depthMask bool
	decal     bool
	blend     bool
	program   *Program
	textures  [2]*Texture
	samplers  [2]*Sampler
	filter    backend.FilterUniforms
	stride    uint64
	topology  gputypes.PrimitiveTopology
}

// Device is a backend.Device on the gogpu/wgpu HAL. Programs are WGSL,
// compiled to SPIR-V with naga. Every distinct depth, decal, blend and
// topology combination of a program becomes one cached render pipeline.
//
// Device is not safe for concurrent use.
type Device struct {
	cfg Config

	instance    hal.Instance
	device      hal.Device
	queue       hal.Queue
	external    bool
	initialized bool
	adapterName string

	width, height int
	color         attachment
	msaa          attachment
	depth         attachment
	target        hal.TextureView

	nextID uint64
	owned  map[uint64]func()

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout

	uniformBuf    hal.Buffer
	uniformSlot   int
	uniformOffset uint32
	uniformsDirty bool
	frame         backend.FrameConstants

	vertexBuf    hal.Buffer
	vertexHead   uint64
	vertexOffset uint64
	vertexData   []byte
	vertexDirty  bool

	white          attachment
	defaultSampler hal.Sampler

	pipelines  *pipelineCache
	bindGroups *lru.Cache[bindKey, hal.BindGroup]

	encoder    hal.CommandEncoder
	pass       hal.RenderPassEncoder
	lastSubmit uint64
	pending    []hal.CommandBuffer
	graveyard  []func()

	st            drawState
	boundPipeline hal.RenderPipeline
	boundGroup    hal.BindGroup
	boundOffset   uint32

	frames  uint64
	draws   uint64
	flushes uint64
}

// New creates a device that opens its own HAL device on Init.
func New(cfg Config) *Device {
	return &Device{cfg: cfg.withDefaults()}
}

// NewWithHAL creates a device on an existing HAL device and queue. The
// device and queue are not destroyed by Close.
func NewWithHAL(dev hal.Device, queue hal.Queue, cfg Config) *Device {
	d := New(cfg)
	d.device = dev
	d.queue = queue
	d.external = true
	return d
}

// NewFromProvider creates a device sharing the HAL device of a host
// application. The provider's surface format replaces cfg.SurfaceFormat
// when it is set.
func NewFromProvider(p gpucontext.DeviceProvider, cfg Config) (*Device, error) {
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrProviderNoHAL
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: device is %T", ErrProviderNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: queue is %T", ErrProviderNoHAL, hp.HalQueue())
	}
	if f := p.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		cfg.SurfaceFormat = f
	}
	d := NewWithHAL(dev, queue, cfg)
	d.adapterName = p.AdapterInfo().Name
	return d, nil
}

// SetLogger sets the logger of the wgpu backend. nil silences it.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

func (d *Device) Name() string          { return backend.BackendWGPU }
func (d *Device) Target() shader.Target { return shader.TargetWGSL }
func (d *Device) ZIsFrom0To1() bool     { return true }
func (d *Device) YFlip() bool           { return true }

// AdapterName returns the name of the GPU adapter, empty before Init.
func (d *Device) AdapterName() string { return d.adapterName }

// Config returns the effective configuration.
func (d *Device) Config() Config { return d.cfg }

// Init opens the HAL device unless one was injected, then creates the
// shared layouts, buffers and framebuffer targets.
func (d *Device) Init(width, height int) error {
	if d.initialized {
		return nil
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("wgpu: invalid framebuffer size %dx%d", width, height)
	}
	if d.device == nil {
		if err := d.open(); err != nil {
			return err
		}
	}
	d.owned = make(map[uint64]func())
	d.pipelines = newPipelineCache()
	d.bindGroups = lru.New(d.cfg.BindGroupCacheSize, func(_ bindKey, g hal.BindGroup) {
		d.retire(func() { d.device.DestroyBindGroup(g) })
	})
	if err := d.createShared(); err != nil {
		d.destroyShared()
		d.closeDevice()
		return err
	}
	if err := d.createTargets(width, height); err != nil {
		d.destroyShared()
		d.closeDevice()
		return err
	}
	d.initialized = true
	slogger().Info("wgpu: device initialized",
		"adapter", d.adapterName,
		"width", width,
		"height", height,
		"samples", d.cfg.SampleCount)
	return nil
}

// open creates an instance on the configured backend and opens the first
// discrete or integrated adapter, falling back to the first one reported.
func (d *Device) open() error {
	b, ok := hal.GetBackend(d.cfg.Backend)
	if !ok {
		return fmt.Errorf("%w: %v", backend.ErrBackendNotAvailable, d.cfg.Backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	d.instance = instance
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.adapterName = selected.Info.Name
	return nil
}

// createShared creates the objects every program shares: the bind group
// layout, the pipeline layout, the uniform and vertex buffers, and the
// placeholder texture and sampler bound to unused slots.
func (d *Device) createShared() error {
	entries := []gputypes.BindGroupLayoutEntry{{
		Binding:    shader.BindingUniforms,
		Visibility: gputypes.ShaderStageFragment,
		Buffer: &gputypes.BufferBindingLayout{
			Type:             gputypes.BufferBindingTypeUniform,
			HasDynamicOffset: true,
			MinBindingSize:   shader.UniformSize,
		},
	}}
	for slot := 0; slot < 2; slot++ {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    shader.BindingTexture(slot),
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    shader.BindingSampler(slot),
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			})
	}
	var err error
	d.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   d.cfg.Label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	d.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            d.cfg.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	d.uniformBuf, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.cfg.Label + "_uniforms",
		Size:  uint64(d.cfg.UniformSlots) * uniformAlign,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create uniform buffer: %w", err)
	}
	d.vertexBuf, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.cfg.Label + "_vertices",
		Size:  d.cfg.VertexArenaSize,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create vertex buffer: %w", err)
	}
	d.white, err = d.createRGBA(d.cfg.Label+"_white", []byte{0xff, 0xff, 0xff, 0xff}, 1, 1)
	if err != nil {
		return err
	}
	d.defaultSampler, err = d.device.CreateSampler(samplerDescriptor(d.cfg.Label+"_default_sampler", backend.SamplerDescriptor{
		WrapU: gputypes.AddressModeClampToEdge,
		WrapV: gputypes.AddressModeClampToEdge,
	}))
	if err != nil {
		return fmt.Errorf("wgpu: create default sampler: %w", err)
	}
	return nil
}

func (d *Device) destroyShared() {
	if d.device == nil {
		return
	}
	if d.defaultSampler != nil {
		d.device.DestroySampler(d.defaultSampler)
		d.defaultSampler = nil
	}
	d.destroyAttachment(&d.white)
	if d.vertexBuf != nil {
		d.device.DestroyBuffer(d.vertexBuf)
		d.vertexBuf = nil
	}
	if d.uniformBuf != nil {
		d.device.DestroyBuffer(d.uniformBuf)
		d.uniformBuf = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
}

// createTargets creates the color, MSAA and depth attachments.
func (d *Device) createTargets(width, height int) error {
	size := hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}
	var err error
	d.color, err = d.createAttachment("color", size, d.cfg.SurfaceFormat, 1,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc|gputypes.TextureUsageTextureBinding)
	if err != nil {
		return err
	}
	if d.cfg.SampleCount > 1 {
		d.msaa, err = d.createAttachment("msaa", size, d.cfg.SurfaceFormat, d.cfg.SampleCount,
			gputypes.TextureUsageRenderAttachment)
		if err != nil {
			d.destroyTargets()
			return err
		}
	}
	d.depth, err = d.createAttachment("depth", size, d.cfg.DepthFormat, d.cfg.SampleCount,
		gputypes.TextureUsageRenderAttachment)
	if err != nil {
		d.destroyTargets()
		return err
	}
	d.width, d.height = width, height
	return nil
}

func (d *Device) createAttachment(name string, size hal.Extent3D, format gputypes.TextureFormat, samples uint32, usage gputypes.TextureUsage) (attachment, error) {
	label := d.cfg.Label + "_" + name
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return attachment{}, fmt.Errorf("wgpu: create %s texture: %w", name, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return attachment{}, fmt.Errorf("wgpu: create %s view: %w", name, err)
	}
	return attachment{tex: tex, view: view}, nil
}

func (d *Device) destroyAttachment(a *attachment) {
	if a.view != nil {
		d.device.DestroyTextureView(a.view)
	}
	if a.tex != nil {
		d.device.DestroyTexture(a.tex)
	}
	*a = attachment{}
}

func (d *Device) destroyTargets() {
	d.destroyAttachment(&d.depth)
	d.destroyAttachment(&d.msaa)
	d.destroyAttachment(&d.color)
}

// SetRenderTarget makes frames render into view, typically the current
// surface texture of a host window. nil restores the device's own color
// texture. The view must have the configured surface format.
func (d *Device) SetRenderTarget(view hal.TextureView) {
	d.target = view
}

// ColorTexture returns the device's own color texture.
func (d *Device) ColorTexture() hal.Texture { return d.color.tex }

// Resize recreates the framebuffer targets. It fails while a frame is in
// progress.
func (d *Device) Resize(width, height int) error {
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	if d.pass != nil {
		return ErrFrameInProgress
	}
	if width == d.width && height == d.height {
		return nil
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("wgpu: invalid framebuffer size %dx%d", width, height)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait idle: %w", err)
	}
	d.reclaim()
	d.destroyTargets()
	if err := d.createTargets(width, height); err != nil {
		return err
	}
	slogger().Debug("wgpu: resized", "width", width, "height", height)
	return nil
}

// Close waits for the GPU, releases every resource the device created and
// the HAL device itself unless it was injected.
func (d *Device) Close() {
	if !d.initialized {
		return
	}
	if d.pass != nil {
		d.pass.End()
		d.pass = nil
	}
	if d.encoder != nil {
		d.encoder.DiscardEncoding()
		d.encoder = nil
	}
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("wgpu: wait idle on close", "err", err)
	}
	d.reclaim()

	d.bindGroups.Clear()
	for _, p := range d.pipelines.drain() {
		d.device.DestroyRenderPipeline(p)
	}
	for id, release := range d.owned {
		release()
		delete(d.owned, id)
	}
	d.runGraveyard()

	d.destroyTargets()
	d.destroyShared()
	d.closeDevice()
	d.st = drawState{}
	d.boundPipeline, d.boundGroup = nil, nil
	d.initialized = false
	slogger().Info("wgpu: device closed")
}

// closeDevice destroys the HAL device and instance the device opened.
func (d *Device) closeDevice() {
	if d.external {
		return
	}
	if d.device != nil {
		d.device.Destroy()
		d.device, d.queue = nil, nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// Stats is a snapshot of device counters.
type Stats struct {
	Frames          uint64
	Draws           uint64
	Flushes         uint64
	LiveResources   int
	Pipelines       int
	PipelineHits    uint64
	PipelineMisses  uint64
	PipelineHitRate float64
	BindGroups      int
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("frames", s.Frames),
		slog.Uint64("draws", s.Draws),
		slog.Uint64("flushes", s.Flushes),
		slog.Int("live", s.LiveResources),
		slog.Int("pipelines", s.Pipelines),
		slog.Uint64("pipeline_hits", s.PipelineHits),
		slog.Uint64("pipeline_misses", s.PipelineMisses),
		slog.Float64("pipeline_hit_rate", s.PipelineHitRate),
		slog.Int("bind_groups", s.BindGroups),
	)
}

// Stats returns the device counters.
func (d *Device) Stats() Stats {
	s := Stats{
		Frames:        d.frames,
		Draws:         d.draws,
		Flushes:       d.flushes,
		LiveResources: len(d.owned),
	}
	if d.pipelines != nil {
		s.Pipelines = d.pipelines.Size()
		s.PipelineHits, s.PipelineMisses = d.pipelines.Stats()
		s.PipelineHitRate = d.pipelines.HitRate()
	}
	if d.bindGroups != nil {
		s.BindGroups = d.bindGroups.Len()
	}
	return s
}
