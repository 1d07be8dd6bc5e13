// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"fmt"
	"strings"
)

var hlslSpelling = spelling{
	vec: func(n int) string { return fmt.Sprintf("float%d", n) },
	mix: "lerp",
}

func hlslType(w int) string {
	if w == 1 {
		return "float"
	}
	return hlslSpelling.vec(w)
}

// hlslSemantic is the input semantic of an attribute and its varying.
func hlslSemantic(a Attribute) string {
	switch a.Kind {
	case AttrPosition:
		return "POSITION"
	case AttrTexCoord:
		return "TEXCOORD"
	case AttrFog:
		return "FOG"
	}
	return fmt.Sprintf("INPUT%d", a.Index-1)
}

// emitHLSL renders m as one shader model 4 source holding VSMain and PSMain.
func emitHLSL(m *Module) string {
	var w writer

	w.line("struct PSInput {")
	w.indent++
	w.line("float4 position : SV_POSITION;")
	var psParams []string
	psParams = append(psParams, "float4 position : SV_POSITION")
	for _, a := range m.Layout.Attributes {
		if v := a.Varying(); v != "" {
			decl := fmt.Sprintf("%s %s : %s", hlslType(a.Components), v, hlslSemantic(a))
			w.line("%s;", decl)
			psParams = append(psParams, decl)
		}
	}
	w.indent--
	w.line("};")
	w.line("")

	for slot, used := range m.Textures {
		if used {
			w.line("Texture2D uTex%d : register(t%d);", slot, slot)
			w.line("SamplerState uSampler%d : register(s%d);", slot, slot)
		}
	}
	if m.Uniforms.Any() {
		w.line("")
		w.line("cbuffer FrameUniforms : register(b0) {")
		w.line("    float noise_frame;")
		w.line("    float noise_scale;")
		w.line("    float2 uniform_pad;")
		w.line("    float4 tex_info0;")
		w.line("    float4 tex_info1;")
		w.line("};")
	}
	w.line("")

	if m.Uniforms.Noise {
		w.line("float random(in float3 value) {")
		w.line("    float r = dot(value, float3(12.9898, 78.233, 37.719));")
		w.line("    return frac(sin(r) * 143758.5453);")
		w.line("}")
		w.line("")
	}
	if m.Uniforms.Filter {
		w.line("float4 tex2D3PointFilter(in Texture2D tex, in SamplerState samp, in float2 texCoord, in float2 texSize) {")
		w.line("    float2 offset = frac(texCoord * texSize - float2(0.5, 0.5));")
		w.line("    offset -= step(1.0, offset.x + offset.y);")
		w.line("    float4 c0 = tex.Sample(samp, texCoord - offset / texSize);")
		w.line("    float4 c1 = tex.Sample(samp, texCoord - float2(offset.x - sign(offset.x), offset.y) / texSize);")
		w.line("    float4 c2 = tex.Sample(samp, texCoord - float2(offset.x, offset.y - sign(offset.y)) / texSize);")
		w.line("    return c0 + abs(offset.x) * (c1 - c0) + abs(offset.y) * (c2 - c0);")
		w.line("}")
		w.line("")
	}

	var vsParams []string
	for _, a := range m.Layout.Attributes {
		vsParams = append(vsParams, fmt.Sprintf("%s %s : %s", hlslType(a.Components), a.Name(), hlslSemantic(a)))
	}
	w.line("PSInput %s(%s) {", HLSLVertexEntry, strings.Join(vsParams, ", "))
	w.indent++
	w.line("PSInput result;")
	w.line("result.position = aVtxPos;")
	for _, a := range m.Layout.Attributes {
		if v := a.Varying(); v != "" {
			w.line("result.%s = %s;", v, a.Name())
		}
	}
	w.line("return result;")
	w.indent--
	w.line("}")
	w.line("")

	w.line("float4 %s(%s) : SV_TARGET {", HLSLFragmentEntry, strings.Join(psParams, ", "))
	w.indent++
	for _, st := range m.Body {
		switch st := st.(type) {
		case SampleTexture:
			name := texValName(st.Slot)
			w.line("float4 %s = uTex%d.Sample(uSampler%d, vTexCoord);", name, st.Slot, st.Slot)
			if st.ThreePoint {
				w.line("if (tex_info%d.z > 0.5)", st.Slot)
				w.line("    %s = tex2D3PointFilter(uTex%d, uSampler%d, vTexCoord, tex_info%d.xy);",
					name, st.Slot, st.Slot, st.Slot)
			}
		case Combine:
			w.line("%s texel = %s;", hlslType(st.Width), hlslSpelling.expr(st.Value))
		case ClipEdge:
			w.line("if (texel.a > %s) texel.a = 1.0; else discard;", formatFloat(st.Threshold))
		case ApplyFog:
			if st.Alpha {
				w.line("texel = float4(lerp(texel.rgb, vFog.rgb, vFog.a), texel.a);")
			} else {
				w.line("texel = lerp(texel, vFog.rgb, vFog.a);")
			}
		case ApplyNoise:
			w.line("texel.a *= floor(random(float3(floor(position.xy * noise_scale), noise_frame)) + 0.5);")
		case WriteOutput:
			if st.Alpha {
				w.line("return texel;")
			} else {
				w.line("return float4(texel, 1.0);")
			}
		}
	}
	w.indent--
	w.line("}")
	return w.String()
}
