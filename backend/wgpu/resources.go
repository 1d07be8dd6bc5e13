// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/combiner/shader"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Program is a compiled shader module with its vertex layout and blend state.
type Program struct {
	id     uint64
	label  string
	module hal.ShaderModule
	layout gputypes.VertexBufferLayout
	blend  *gputypes.BlendState
	vs, fs string
	owner  *Device
}

// Label returns the debug name of the program.
func (p *Program) Label() string { return p.label }

// Texture is a sampled RGBA8 texture.
type Texture struct {
	id            uint64
	label         string
	tex           attachment
	width, height int
	owner         *Device
}

// Label returns the debug name of the texture.
func (t *Texture) Label() string { return t.label }

// Size returns the texture dimensions.
func (t *Texture) Size() (width, height int) { return t.width, t.height }

// Sampler is a texture sampler.
type Sampler struct {
	id      uint64
	label   string
	sampler hal.Sampler
	desc    backend.SamplerDescriptor
	owner   *Device
}

// Label returns the debug name of the sampler.
func (s *Sampler) Label() string { return s.label }

func (d *Device) newID(kind string) (uint64, string) {
	d.nextID++
	return d.nextID, fmt.Sprintf("%s_%s_%d", d.cfg.Label, kind, d.nextID)
}

// CompileProgram compiles the WGSL source of src to SPIR-V and creates the
// shader module. Pipelines are created lazily per draw state.
func (d *Device) CompileProgram(src *shader.Source, blend *gputypes.BlendState) (backend.Resource, error) {
	if !d.initialized {
		return nil, backend.ErrNotInitialized
	}
	if src.Target != shader.TargetWGSL {
		return nil, &backend.CompileError{Mode: src.Mode, Target: src.Target, Err: backend.ErrWrongTarget}
	}
	spirv, err := shader.CompileSPIRV(src)
	if err != nil {
		return nil, &backend.CompileError{Mode: src.Mode, Target: src.Target, Log: err.Error(), Err: err}
	}
	id, label := d.newID("program")
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, &backend.CompileError{Mode: src.Mode, Target: src.Target, Err: err}
	}
	p := &Program{
		id:     id,
		label:  label,
		module: module,
		layout: src.Layout.VertexBufferLayout(),
		blend:  blend,
		vs:     src.VertexEntry,
		fs:     src.FragmentEntry,
		owner:  d,
	}
	d.owned[id] = func() { d.device.DestroyShaderModule(module) }
	slogger().Debug("wgpu: program compiled", "mode", src.Mode, "label", label, "spirv_words", len(spirv))
	return p, nil
}

// CreateTexture uploads tightly packed RGBA8 pixels into a new texture.
func (d *Device) CreateTexture(rgba []byte, width, height int) (backend.Resource, error) {
	if !d.initialized {
		return nil, backend.ErrNotInitialized
	}
	if width <= 0 || height <= 0 || len(rgba) < width*height*4 {
		return nil, fmt.Errorf("wgpu: texture %dx%d with %d bytes", width, height, len(rgba))
	}
	id, label := d.newID("texture")
	a, err := d.createRGBA(label, rgba[:width*height*4], width, height)
	if err != nil {
		return nil, err
	}
	t := &Texture{id: id, label: label, tex: a, width: width, height: height, owner: d}
	d.owned[id] = func() { d.destroyAttachment(&a) }
	return t, nil
}

func (d *Device) createRGBA(label string, rgba []byte, width, height int) (attachment, error) {
	size := hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return attachment{}, fmt.Errorf("wgpu: create texture %s: %w", label, err)
	}
	err = d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		rgba,
		&hal.ImageDataLayout{BytesPerRow: uint32(width * 4), RowsPerImage: uint32(height)},
		&size,
	)
	if err != nil {
		d.device.DestroyTexture(tex)
		return attachment{}, fmt.Errorf("wgpu: upload texture %s: %w", label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return attachment{}, fmt.Errorf("wgpu: create texture view %s: %w", label, err)
	}
	return attachment{tex: tex, view: view}, nil
}

func samplerDescriptor(label string, desc backend.SamplerDescriptor) *hal.SamplerDescriptor {
	filter := gputypes.FilterModeNearest
	if desc.Linear {
		filter = gputypes.FilterModeLinear
	}
	return &hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: desc.WrapU,
		AddressModeV: desc.WrapV,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	}
}

// CreateSampler creates a sampler.
func (d *Device) CreateSampler(desc backend.SamplerDescriptor) (backend.Resource, error) {
	if !d.initialized {
		return nil, backend.ErrNotInitialized
	}
	id, label := d.newID("sampler")
	s, err := d.device.CreateSampler(samplerDescriptor(label, desc))
	if err != nil {
		return nil, fmt.Errorf("wgpu: create sampler: %w", err)
	}
	d.owned[id] = func() { d.device.DestroySampler(s) }
	return &Sampler{id: id, label: label, sampler: s, desc: desc, owner: d}, nil
}

// Destroy releases a resource once the GPU no longer uses it. Pipelines
// and bind groups that reference it are dropped with it. Destroying nil,
// a resource of another device or an already destroyed one is a no-op.
func (d *Device) Destroy(r backend.Resource) {
	if !d.initialized {
		return
	}
	var id uint64
	switch r := r.(type) {
	case *Program:
		if r == nil || r.owner != d {
			return
		}
		id = r.id
		for _, p := range d.pipelines.dropProgram(id) {
			d.retire(func() { d.device.DestroyRenderPipeline(p) })
		}
		if d.st.program == r {
			d.st.program = nil
			d.boundPipeline = nil
		}
	case *Texture:
		if r == nil || r.owner != d {
			return
		}
		id = r.id
		d.bindGroups.DeleteFunc(func(k bindKey, _ hal.BindGroup) bool { return k.tex[0] == id || k.tex[1] == id })
		for slot := range d.st.textures {
			if d.st.textures[slot] == r {
				d.st.textures[slot] = nil
			}
		}
	case *Sampler:
		if r == nil || r.owner != d {
			return
		}
		id = r.id
		d.bindGroups.DeleteFunc(func(k bindKey, _ hal.BindGroup) bool { return k.samp[0] == id || k.samp[1] == id })
		for slot := range d.st.samplers {
			if d.st.samplers[slot] == r {
				d.st.samplers[slot] = nil
			}
		}
	default:
		return
	}
	release, ok := d.owned[id]
	if !ok {
		return
	}
	delete(d.owned, id)
	d.retire(release)
}

// retire schedules release for after the GPU finished the work submitted
// so far. It runs immediately when nothing is in flight.
func (d *Device) retire(release func()) {
	if d.pass == nil && d.queue.PollCompleted() >= d.lastSubmit {
		release()
		return
	}
	d.graveyard = append(d.graveyard, release)
}

// reclaim frees finished command buffers and runs retired releases. The
// caller guarantees the GPU is idle or has completed lastSubmit.
func (d *Device) reclaim() {
	for _, cb := range d.pending {
		d.device.FreeCommandBuffer(cb)
	}
	d.pending = d.pending[:0]
	d.runGraveyard()
}

func (d *Device) runGraveyard() {
	for _, release := range d.graveyard {
		release()
	}
	d.graveyard = d.graveyard[:0]
}
