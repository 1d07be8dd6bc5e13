// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/combiner/cc"
)

// Target is a shading language.
type Target uint8

// Supported targets.
const (
	// TargetGLSL is GLSL 1.10 for desktop OpenGL 2.1.
	TargetGLSL Target = iota
	// TargetHLSL is HLSL shader model 4 for Direct3D 11.
	TargetHLSL
	// TargetWGSL is WGSL for WebGPU and the naga toolchain.
	TargetWGSL
)

func (t Target) String() string {
	switch t {
	case TargetGLSL:
		return "glsl"
	case TargetHLSL:
		return "hlsl"
	case TargetWGSL:
		return "wgsl"
	}
	return fmt.Sprintf("Target(%d)", uint8(t))
}

// ParseTarget maps a target name to a Target.
func ParseTarget(name string) (Target, error) {
	switch strings.ToLower(name) {
	case "glsl", "gl":
		return TargetGLSL, nil
	case "hlsl", "d3d", "d3d11":
		return TargetHLSL, nil
	case "wgsl", "wgpu", "webgpu":
		return TargetWGSL, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
}

// ErrUnknownTarget is returned for a target with no emitter.
var ErrUnknownTarget = errors.New("shader: unknown target")

// Entry points. GLSL always uses main.
const (
	HLSLVertexEntry   = "VSMain"
	HLSLFragmentEntry = "PSMain"
	WGSLVertexEntry   = "vs_main"
	WGSLFragmentEntry = "fs_main"
)

// Uniform block layout, identical for every target. The block is
// {noise_frame, noise_scale, pad, pad, tex_info0, tex_info1}.
const (
	UniformNoiseFrameOffset = 0
	UniformNoiseScaleOffset = 4
	UniformTexInfoOffset    = 16
	UniformSize             = 48
)

// WGSL bind group 0 layout. Texture and sampler of slot N sit at
// BindingTexture(N) and BindingSampler(N).
const BindingUniforms = 0

// BindingTexture is the binding index of the texture in slot.
func BindingTexture(slot int) uint32 { return uint32(1 + 2*slot) }

// BindingSampler is the binding index of the sampler in slot.
func BindingSampler(slot int) uint32 { return uint32(2 + 2*slot) }

// Uniforms is the CPU-side value of the uniform block.
type Uniforms struct {
	NoiseFrame float32
	NoiseScale float32
	// TexInfo holds (width, height, linear, 0) per texture slot.
	TexInfo [2][4]float32
}

// Bytes encodes u in the uniform block layout.
func (u Uniforms) Bytes() []byte {
	b := make([]byte, UniformSize)
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
	}
	put(UniformNoiseFrameOffset, u.NoiseFrame)
	put(UniformNoiseScaleOffset, u.NoiseScale)
	for slot, info := range u.TexInfo {
		for i, v := range info {
			put(UniformTexInfoOffset+16*slot+4*i, v)
		}
	}
	return b
}

// Source is a program rendered for one target.
type Source struct {
	Target        Target
	Mode          cc.ModeWord
	Vertex        string
	Fragment      string
	VertexEntry   string
	FragmentEntry string
	Layout        Layout
	Textures      [2]bool
	Uniforms      UniformUsage
}

// Emit renders m for target t.
func Emit(m *Module, t Target) (*Source, error) {
	src := &Source{
		Target:   t,
		Mode:     m.Combiner.Mode,
		Layout:   m.Layout,
		Textures: m.Textures,
		Uniforms: m.Uniforms,
	}
	switch t {
	case TargetGLSL:
		src.VertexEntry, src.FragmentEntry = "main", "main"
		src.Vertex, src.Fragment = emitGLSL(m)
	case TargetHLSL:
		src.VertexEntry, src.FragmentEntry = HLSLVertexEntry, HLSLFragmentEntry
		src.Vertex = emitHLSL(m)
		src.Fragment = src.Vertex
	case TargetWGSL:
		src.VertexEntry, src.FragmentEntry = WGSLVertexEntry, WGSLFragmentEntry
		src.Vertex = emitWGSL(m)
		src.Fragment = src.Vertex
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownTarget, t)
	}
	return src, nil
}

// Generate synthesizes c and emits it for t.
func Generate(c cc.Combiner, t Target, opts Options) (*Source, error) {
	return Emit(Synthesize(c, opts), t)
}

// writer accumulates indented source lines.
type writer struct {
	b      strings.Builder
	indent int
}

func (w *writer) line(format string, args ...any) {
	if format == "" {
		w.b.WriteByte('\n')
		return
	}
	for i := 0; i < w.indent; i++ {
		w.b.WriteString("    ")
	}
	if len(args) == 0 {
		w.b.WriteString(format)
	} else {
		fmt.Fprintf(&w.b, format, args...)
	}
	w.b.WriteByte('\n')
}

func (w *writer) String() string { return w.b.String() }

// spelling is what differs between targets when printing expressions.
type spelling struct {
	vec func(n int) string
	mix string
	// splat renders a broadcast as a one-argument constructor.
	splat bool
}

func (sp spelling) zero(n int) string {
	if n == 1 {
		return "0.0"
	}
	return sp.vec(n) + "(" + strings.TrimSuffix(strings.Repeat("0.0, ", n), ", ") + ")"
}

func (sp spelling) broadcast(scalar string, n int) string {
	if sp.splat {
		return sp.vec(n) + "(" + scalar + ")"
	}
	return sp.vec(n) + "(" + strings.TrimSuffix(strings.Repeat(scalar+", ", n), ", ") + ")"
}

func texValName(slot int) string { return "texVal" + strconv.Itoa(slot) }

func (sp spelling) operand(r Ref) string {
	if r.W == 1 {
		switch {
		case r.Op == cc.Zero:
			return "0.0"
		case r.Op.IsInput():
			return fmt.Sprintf("vInput%d.a", r.Op.InputIndex())
		}
		slot, _ := r.Op.TextureSlot()
		return texValName(slot) + ".a"
	}

	switch {
	case r.Op == cc.Zero:
		return sp.zero(r.W)
	case r.Op.IsInput():
		name := fmt.Sprintf("vInput%d", r.Op.InputIndex())
		if r.InputW > r.W {
			return name + ".rgb"
		}
		return name
	case r.Op == cc.Texel0Alpha:
		if r.Scalar {
			return "texVal0.a"
		}
		return sp.broadcast("texVal0.a", r.W)
	}
	slot, _ := r.Op.TextureSlot()
	if r.W == 4 {
		return texValName(slot)
	}
	return texValName(slot) + ".rgb"
}

func (sp spelling) expr(e Expr) string {
	switch e := e.(type) {
	case Ref:
		return sp.operand(e)
	case Sub:
		return "(" + sp.expr(e.X) + " - " + sp.expr(e.Y) + ")"
	case Mul:
		return sp.expr(e.X) + " * " + sp.expr(e.Y)
	case Add:
		return sp.expr(e.X) + " + " + sp.expr(e.Y)
	case Mix:
		return sp.mix + "(" + sp.expr(e.X) + ", " + sp.expr(e.Y) + ", " + sp.mixFactor(e) + ")"
	case Pack:
		return sp.vec(4) + "(" + sp.expr(e.RGB) + ", " + sp.expr(e.A) + ")"
	}
	panic(fmt.Sprintf("shader: unknown expression %T", e))
}

// mixFactor renders the interpolation factor. GLSL and HLSL accept a scalar
// factor for vector mixes; WGSL needs a matching vector.
func (sp spelling) mixFactor(m Mix) string {
	t := sp.expr(m.T)
	if sp.splat && m.Width() > 1 && isScalarRef(m.T) {
		return sp.vec(m.Width()) + "(" + t + ")"
	}
	return t
}

func isScalarRef(e Expr) bool {
	r, ok := e.(Ref)
	return ok && r.W > 1 && r.Scalar && r.Op == cc.Texel0Alpha
}

func formatFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
