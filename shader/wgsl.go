// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import "fmt"

var wgslSpelling = spelling{
	vec:   func(n int) string { return fmt.Sprintf("vec%d<f32>", n) },
	mix:   "mix",
	splat: true,
}

func wgslType(w int) string {
	if w == 1 {
		return "f32"
	}
	return wgslSpelling.vec(w)
}

// emitWGSL renders m as one WGSL module with vs_main and fs_main.
//
// Group 0 holds the uniform block at binding 0 and the texture/sampler pair
// of slot N at bindings 1+2N and 2+2N. Only what the program reads is
// declared.
func emitWGSL(m *Module) string {
	var w writer

	if m.Uniforms.Any() {
		w.line("struct FrameUniforms {")
		w.line("    noise_frame: f32,")
		w.line("    noise_scale: f32,")
		w.line("    pad0: f32,")
		w.line("    pad1: f32,")
		w.line("    tex_info0: vec4<f32>,")
		w.line("    tex_info1: vec4<f32>,")
		w.line("}")
		w.line("")
		w.line("@group(0) @binding(%d) var<uniform> uFrame: FrameUniforms;", BindingUniforms)
	}
	for slot, used := range m.Textures {
		if used {
			w.line("@group(0) @binding(%d) var uTex%d: texture_2d<f32>;", BindingTexture(slot), slot)
			w.line("@group(0) @binding(%d) var uSampler%d: sampler;", BindingSampler(slot), slot)
		}
	}
	w.line("")

	w.line("struct VertexInput {")
	for _, a := range m.Layout.Attributes {
		w.line("    @location(%d) %s: %s,", a.Location, a.Name(), wgslType(a.Components))
	}
	w.line("}")
	w.line("")

	w.line("struct VertexOutput {")
	w.line("    @builtin(position) position: vec4<f32>,")
	loc := 0
	for _, a := range m.Layout.Attributes {
		if v := a.Varying(); v != "" {
			w.line("    @location(%d) %s: %s,", loc, v, wgslType(a.Components))
			loc++
		}
	}
	w.line("}")
	w.line("")

	if m.Uniforms.Noise {
		w.line("fn random(value: vec3<f32>) -> f32 {")
		w.line("    let r = dot(value, vec3<f32>(12.9898, 78.233, 37.719));")
		w.line("    return fract(sin(r) * 143758.5453);")
		w.line("}")
		w.line("")
	}
	if m.Uniforms.Filter {
		for slot, used := range m.Textures {
			if !used {
				continue
			}
			w.line("fn tex2D3PointFilter%d(texCoord: vec2<f32>, texSize: vec2<f32>) -> vec4<f32> {", slot)
			w.line("    var offset = fract(texCoord * texSize - vec2<f32>(0.5, 0.5));")
			w.line("    offset = offset - vec2<f32>(step(1.0, offset.x + offset.y));")
			w.line("    let c0 = textureSample(uTex%d, uSampler%d, texCoord - offset / texSize);", slot, slot)
			w.line("    let c1 = textureSample(uTex%d, uSampler%d, texCoord - vec2<f32>(offset.x - sign(offset.x), offset.y) / texSize);", slot, slot)
			w.line("    let c2 = textureSample(uTex%d, uSampler%d, texCoord - vec2<f32>(offset.x, offset.y - sign(offset.y)) / texSize);", slot, slot)
			w.line("    return c0 + abs(offset.x) * (c1 - c0) + abs(offset.y) * (c2 - c0);")
			w.line("}")
			w.line("")
		}
	}

	w.line("@vertex")
	w.line("fn %s(in: VertexInput) -> VertexOutput {", WGSLVertexEntry)
	w.indent++
	w.line("var out: VertexOutput;")
	w.line("out.position = in.aVtxPos;")
	for _, a := range m.Layout.Attributes {
		if v := a.Varying(); v != "" {
			w.line("out.%s = in.%s;", v, a.Name())
		}
	}
	w.line("return out;")
	w.indent--
	w.line("}")
	w.line("")

	w.line("@fragment")
	w.line("fn %s(in: VertexOutput) -> @location(0) vec4<f32> {", WGSLFragmentEntry)
	w.indent++
	for _, a := range m.Layout.Attributes {
		if v := a.Varying(); v != "" {
			w.line("let %s = in.%s;", v, v)
		}
	}
	for _, st := range m.Body {
		switch st := st.(type) {
		case SampleTexture:
			name := texValName(st.Slot)
			plain := fmt.Sprintf("textureSample(uTex%d, uSampler%d, vTexCoord)", st.Slot, st.Slot)
			if st.ThreePoint {
				w.line("let %s = select(%s, tex2D3PointFilter%d(vTexCoord, uFrame.tex_info%d.xy), uFrame.tex_info%d.z > 0.5);",
					name, plain, st.Slot, st.Slot, st.Slot)
			} else {
				w.line("let %s = %s;", name, plain)
			}
		case Combine:
			w.line("var texel: %s = %s;", wgslType(st.Width), wgslSpelling.expr(st.Value))
		case ClipEdge:
			w.line("if (texel.a > %s) {", formatFloat(st.Threshold))
			w.line("    texel = vec4<f32>(texel.rgb, 1.0);")
			w.line("} else {")
			w.line("    discard;")
			w.line("}")
		case ApplyFog:
			if st.Alpha {
				w.line("texel = vec4<f32>(mix(texel.rgb, vFog.rgb, vec3<f32>(vFog.a)), texel.a);")
			} else {
				w.line("texel = mix(texel, vFog.rgb, vec3<f32>(vFog.a));")
			}
		case ApplyNoise:
			w.line("texel = vec4<f32>(texel.rgb, texel.a * floor(random(vec3<f32>(floor(in.position.xy * uFrame.noise_scale), uFrame.noise_frame)) + 0.5));")
		case WriteOutput:
			if st.Alpha {
				w.line("return texel;")
			} else {
				w.line("return vec4<f32>(texel, 1.0);")
			}
		}
	}
	w.indent--
	w.line("}")
	return w.String()
}
