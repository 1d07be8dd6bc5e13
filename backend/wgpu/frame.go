// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/combiner/shader"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// StartFrame waits for the previous frame, resets the per-frame arenas and
// opens a render pass that clears color to black and depth to 1.
func (d *Device) StartFrame(fc backend.FrameConstants) error {
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	if d.pass != nil {
		return ErrFrameInProgress
	}
	if d.queue.PollCompleted() < d.lastSubmit {
		if err := d.device.WaitIdle(); err != nil {
			return fmt.Errorf("wgpu: wait idle: %w", err)
		}
	}
	d.reclaim()
	d.frame = fc
	d.resetArenas()
	if err := d.begin(gputypes.LoadOpClear); err != nil {
		return err
	}
	d.frames++
	return nil
}

func (d *Device) resetArenas() {
	d.vertexHead = 0
	d.uniformSlot = 0
	d.uniformsDirty = true
	d.vertexDirty = len(d.vertexData) > 0
}

// begin opens a command encoder and a render pass. load selects whether the
// attachments are cleared or kept.
func (d *Device) begin(load gputypes.LoadOp) error {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: d.cfg.Label + "_frame"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(d.cfg.Label + "_frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	colorView := d.color.view
	if d.target != nil {
		colorView = d.target
	}
	ca := hal.RenderPassColorAttachment{
		View:       colorView,
		LoadOp:     load,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
	}
	if d.msaa.view != nil {
		ca.View = d.msaa.view
		ca.ResolveTarget = colorView
	}
	d.pass = enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            d.cfg.Label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{ca},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            d.depth.view,
			DepthLoadOp:     load,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	d.encoder = enc
	d.boundPipeline, d.boundGroup = nil, nil
	d.applyViewport()
	d.applyScissor()
	return nil
}

// end closes the render pass and submits the encoded commands.
func (d *Device) end() error {
	d.pass.End()
	d.pass = nil
	cb, err := d.encoder.EndEncoding()
	d.encoder = nil
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	idx, err := d.queue.Submit([]hal.CommandBuffer{cb})
	if err != nil {
		d.device.FreeCommandBuffer(cb)
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	d.pending = append(d.pending, cb)
	d.lastSubmit = idx
	return nil
}

// EndFrame submits the frame.
func (d *Device) EndFrame() error {
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	if d.pass == nil {
		return ErrNoFrame
	}
	return d.end()
}

// FinishRender blocks until submitted work completes.
func (d *Device) FinishRender() {
	if !d.initialized {
		return
	}
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("wgpu: wait idle", "err", err)
		return
	}
	if d.pass == nil {
		d.reclaim()
	}
}

// flush submits the open pass and reopens it keeping the attachments, so
// the arenas can be reused. It is used when a frame outgrows them.
func (d *Device) flush() error {
	if err := d.end(); err != nil {
		return err
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait idle: %w", err)
	}
	d.reclaim()
	d.resetArenas()
	d.flushes++
	slogger().Debug("wgpu: arena flush", "frame", d.frames)
	return d.begin(gputypes.LoadOpLoad)
}

// SetViewport sets the viewport in framebuffer pixels, origin top-left.
func (d *Device) SetViewport(x, y, width, height int) {
	d.st.viewport = [4]int{x, y, width, height}
	if d.pass != nil {
		d.applyViewport()
	}
}

func (d *Device) applyViewport() {
	v := d.st.viewport
	if v[2] <= 0 || v[3] <= 0 {
		v = [4]int{0, 0, d.width, d.height}
	}
	d.pass.SetViewport(float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3]), 0, 1)
}

// SetScissor sets the scissor rectangle, clamped to the framebuffer.
func (d *Device) SetScissor(x, y, width, height int) {
	d.st.scissor = [4]int{x, y, width, height}
	if d.pass != nil {
		d.applyScissor()
	}
}

func (d *Device) applyScissor() {
	s := d.st.scissor
	if s[2] <= 0 || s[3] <= 0 {
		s = [4]int{0, 0, d.width, d.height}
	}
	x0, y0 := clamp(s[0], 0, d.width), clamp(s[1], 0, d.height)
	x1, y1 := clamp(s[0]+s[2], 0, d.width), clamp(s[1]+s[3], 0, d.height)
	d.pass.SetScissorRect(uint32(x0), uint32(y0), uint32(x1-x0), uint32(y1-y0))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func (d *Device) SetDepthStencil(test, mask bool) { d.st.depthTest, d.st.depthMask = test, mask }
func (d *Device) SetDecal(decal bool)             { d.st.decal = decal }
func (d *Device) SetBlend(enabled bool)           { d.st.blend = enabled }
func (d *Device) SetVertexStride(bytes uint64)    { d.st.stride = bytes }

func (d *Device) SetTopology(t gputypes.PrimitiveTopology) { d.st.topology = t }

// SetProgram selects the program of the next draw. Resources of other
// devices are ignored.
func (d *Device) SetProgram(p backend.Resource) {
	prog, _ := p.(*Program)
	if prog != nil && prog.owner != d {
		return
	}
	d.st.program = prog
}

func (d *Device) SetTexture(slot int, tex backend.Resource) {
	if slot < 0 || slot > 1 {
		return
	}
	t, _ := tex.(*Texture)
	if t != nil && t.owner != d {
		return
	}
	d.st.textures[slot] = t
}

func (d *Device) SetSampler(slot int, s backend.Resource) {
	if slot < 0 || slot > 1 {
		return
	}
	smp, _ := s.(*Sampler)
	if smp != nil && smp.owner != d {
		return
	}
	d.st.samplers[slot] = smp
}

func (d *Device) SetFilterUniforms(u backend.FilterUniforms) {
	if u != d.st.filter {
		d.st.filter = u
		d.uniformsDirty = true
	}
}

// WriteVertices stages data for the next Draw. The data is copied into the
// frame's vertex arena at draw time.
func (d *Device) WriteVertices(data []float32) error {
	n := uint64(len(data)) * 4
	if n > d.cfg.VertexArenaSize {
		return fmt.Errorf("%w: %d bytes", ErrVertexOverflow, n)
	}
	if cap(d.vertexData) < int(n) {
		d.vertexData = make([]byte, n)
	}
	d.vertexData = d.vertexData[:n]
	for i, f := range data {
		binary.LittleEndian.PutUint32(d.vertexData[i*4:], math.Float32bits(f))
	}
	d.vertexDirty = true
	return nil
}

// Draw issues vertexCount vertices with the current state.
func (d *Device) Draw(vertexCount uint32) error {
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	if d.pass == nil {
		return ErrNoFrame
	}
	p := d.st.program
	if p == nil {
		return ErrNoProgram
	}
	if d.st.stride != p.layout.ArrayStride {
		return fmt.Errorf("%w: %d != %d", ErrStrideMismatch, d.st.stride, p.layout.ArrayStride)
	}
	if need := uint64(vertexCount) * p.layout.ArrayStride; need > uint64(len(d.vertexData)) {
		return fmt.Errorf("wgpu: %d vertices need %d bytes, have %d", vertexCount, need, len(d.vertexData))
	}

	if d.vertexDirty && d.vertexHead+uint64(len(d.vertexData)) > d.cfg.VertexArenaSize ||
		d.uniformsDirty && d.uniformSlot >= d.cfg.UniformSlots {
		if err := d.flush(); err != nil {
			return err
		}
	}
	if d.vertexDirty {
		if err := d.queue.WriteBuffer(d.vertexBuf, d.vertexHead, d.vertexData); err != nil {
			return fmt.Errorf("wgpu: write vertices: %w", err)
		}
		d.vertexOffset = d.vertexHead
		d.vertexHead += alignUp(uint64(len(d.vertexData)), 4)
		d.vertexDirty = false
	}
	if d.uniformsDirty {
		u := shader.Uniforms{
			NoiseFrame: d.frame.NoiseFrame,
			NoiseScale: d.frame.NoiseScale,
			TexInfo:    d.st.filter,
		}
		off := uint64(d.uniformSlot) * uniformAlign
		if err := d.queue.WriteBuffer(d.uniformBuf, off, u.Bytes()); err != nil {
			return fmt.Errorf("wgpu: write uniforms: %w", err)
		}
		d.uniformOffset = uint32(off)
		d.uniformSlot++
		d.uniformsDirty = false
	}

	key := pipelineKey{
		program:   p.id,
		depthTest: d.st.depthTest,
		depthMask: d.st.depthMask,
		decal:     d.st.decal,
		blend:     d.st.blend && p.blend != nil,
		topology:  d.st.topology,
	}
	pipeline, err := d.pipelines.getOrCreate(key, func() (hal.RenderPipeline, error) {
		return d.createPipeline(p, key)
	})
	if err != nil {
		return err
	}
	group, err := d.bindGroup()
	if err != nil {
		return err
	}

	if pipeline != d.boundPipeline {
		d.pass.SetPipeline(pipeline)
		d.boundPipeline = pipeline
	}
	if group != d.boundGroup || d.uniformOffset != d.boundOffset {
		d.pass.SetBindGroup(0, group, []uint32{d.uniformOffset})
		d.boundGroup, d.boundOffset = group, d.uniformOffset
	}
	d.pass.SetVertexBuffer(0, d.vertexBuf, d.vertexOffset)
	d.pass.Draw(vertexCount, 1, 0, 0)
	d.draws++
	return nil
}

func alignUp(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}

// bindGroup returns the cached bind group for the bound textures and
// samplers. Unbound slots use the placeholder texture and sampler.
func (d *Device) bindGroup() (hal.BindGroup, error) {
	var key bindKey
	for slot := 0; slot < 2; slot++ {
		if t := d.st.textures[slot]; t != nil {
			key.tex[slot] = t.id
		}
		if s := d.st.samplers[slot]; s != nil {
			key.samp[slot] = s.id
		}
	}
	return d.bindGroups.GetOrCreate(key, func() (hal.BindGroup, error) {
		entries := []gputypes.BindGroupEntry{{
			Binding: shader.BindingUniforms,
			Resource: gputypes.BufferBinding{
				Buffer: d.uniformBuf.NativeHandle(),
				Size:   shader.UniformSize,
			},
		}}
		for slot := 0; slot < 2; slot++ {
			view := d.white.view
			if t := d.st.textures[slot]; t != nil {
				view = t.tex.view
			}
			smp := d.defaultSampler
			if s := d.st.samplers[slot]; s != nil {
				smp = s.sampler
			}
			entries = append(entries,
				gputypes.BindGroupEntry{
					Binding:  shader.BindingTexture(slot),
					Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()},
				},
				gputypes.BindGroupEntry{
					Binding:  shader.BindingSampler(slot),
					Resource: gputypes.SamplerBinding{Sampler: smp.NativeHandle()},
				})
		}
		g, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   d.cfg.Label + "_bind_group",
			Layout:  d.bindLayout,
			Entries: entries,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create bind group: %w", err)
		}
		return g, nil
	})
}

// createPipeline builds the render pipeline of p for key. Depth writes
// need both the depth test and the depth mask; decals get a negative
// slope-scaled bias so they win against the surface they lie on.
func (d *Device) createPipeline(p *Program, key pipelineKey) (hal.RenderPipeline, error) {
	compare := gputypes.CompareFunctionAlways
	if key.depthTest {
		compare = gputypes.CompareFunctionLessEqual
	}
	depth := &hal.DepthStencilState{
		Format:            d.cfg.DepthFormat,
		DepthWriteEnabled: key.depthTest && key.depthMask,
		DepthCompare:      compare,
		StencilFront: hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		},
		StencilBack: hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		},
	}
	if key.decal {
		depth.DepthBiasSlopeScale = backend.DecalSlopeBias
	}
	var blend *gputypes.BlendState
	if key.blend {
		blend = p.blend
	}
	desc := &hal.RenderPipelineDescriptor{
		Label:  p.label + "_pipeline",
		Layout: d.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: p.vs,
			Buffers:    []gputypes.VertexBufferLayout{p.layout},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  key.topology,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		DepthStencil: depth,
		Multisample: gputypes.MultisampleState{
			Count: d.cfg.SampleCount,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: p.fs,
			Targets: []gputypes.ColorTargetState{{
				Format:    d.cfg.SurfaceFormat,
				Blend:     blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	}
	pipeline, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline %s: %w", desc.Label, err)
	}
	slogger().Debug("wgpu: pipeline created",
		"program", p.label,
		"depth_test", key.depthTest,
		"depth_mask", key.depthMask,
		"decal", key.decal,
		"blend", key.blend)
	return pipeline, nil
}
