// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import "fmt"

var glslSpelling = spelling{
	vec: func(n int) string { return fmt.Sprintf("vec%d", n) },
	mix: "mix",
}

func glslType(w int) string {
	if w == 1 {
		return "float"
	}
	return glslSpelling.vec(w)
}

// emitGLSL renders m as a GLSL 1.10 vertex and fragment shader pair.
func emitGLSL(m *Module) (vertex, fragment string) {
	var vs writer
	vs.line("#version 110")
	vs.line("")
	for _, a := range m.Layout.Attributes {
		vs.line("attribute %s %s;", glslType(a.Components), a.Name())
		if v := a.Varying(); v != "" {
			vs.line("varying %s %s;", glslType(a.Components), v)
		}
	}
	vs.line("")
	vs.line("void main() {")
	vs.indent++
	for _, a := range m.Layout.Attributes {
		if v := a.Varying(); v != "" {
			vs.line("%s = %s;", v, a.Name())
		}
	}
	vs.line("gl_Position = aVtxPos;")
	vs.indent--
	vs.line("}")

	var fs writer
	fs.line("#version 110")
	fs.line("")
	for _, a := range m.Layout.Attributes {
		if v := a.Varying(); v != "" {
			fs.line("varying %s %s;", glslType(a.Components), v)
		}
	}
	for slot, used := range m.Textures {
		if used {
			fs.line("uniform sampler2D uTex%d;", slot)
		}
	}
	if m.Uniforms.Noise {
		fs.line("uniform float noise_frame;")
		fs.line("uniform float noise_scale;")
	}
	if m.Uniforms.Filter {
		for slot, used := range m.Textures {
			if used {
				fs.line("uniform vec4 tex_info%d;", slot)
			}
		}
	}
	fs.line("")
	if m.Uniforms.Noise {
		fs.line("float random(in vec3 value) {")
		fs.line("    float r = dot(value, vec3(12.9898, 78.233, 37.719));")
		fs.line("    return fract(sin(r) * 143758.5453);")
		fs.line("}")
		fs.line("")
	}
	if m.Uniforms.Filter {
		fs.line("vec4 tex2D3PointFilter(in sampler2D tex, in vec2 texCoord, in vec2 texSize) {")
		fs.line("    vec2 offset = fract(texCoord * texSize - vec2(0.5));")
		fs.line("    offset -= step(1.0, offset.x + offset.y);")
		fs.line("    vec4 c0 = texture2D(tex, texCoord - offset / texSize);")
		fs.line("    vec4 c1 = texture2D(tex, texCoord - vec2(offset.x - sign(offset.x), offset.y) / texSize);")
		fs.line("    vec4 c2 = texture2D(tex, texCoord - vec2(offset.x, offset.y - sign(offset.y)) / texSize);")
		fs.line("    return c0 + abs(offset.x) * (c1 - c0) + abs(offset.y) * (c2 - c0);")
		fs.line("}")
		fs.line("")
	}

	fs.line("void main() {")
	fs.indent++
	for _, st := range m.Body {
		switch st := st.(type) {
		case SampleTexture:
			name := texValName(st.Slot)
			if st.ThreePoint {
				fs.line("vec4 %s;", name)
				fs.line("if (tex_info%d.z > 0.5)", st.Slot)
				fs.line("    %s = tex2D3PointFilter(uTex%d, vTexCoord, tex_info%d.xy);", name, st.Slot, st.Slot)
				fs.line("else")
				fs.line("    %s = texture2D(uTex%d, vTexCoord);", name, st.Slot)
			} else {
				fs.line("vec4 %s = texture2D(uTex%d, vTexCoord);", name, st.Slot)
			}
		case Combine:
			fs.line("%s texel = %s;", glslType(st.Width), glslSpelling.expr(st.Value))
		case ClipEdge:
			fs.line("if (texel.a > %s) texel.a = 1.0; else discard;", formatFloat(st.Threshold))
		case ApplyFog:
			if st.Alpha {
				fs.line("texel = vec4(mix(texel.rgb, vFog.rgb, vFog.a), texel.a);")
			} else {
				fs.line("texel = mix(texel, vFog.rgb, vFog.a);")
			}
		case ApplyNoise:
			// gl_FragCoord is bottom-up; height * noise_scale is 240.
			fs.line("vec2 noise_coord = vec2(gl_FragCoord.x * noise_scale, 240.0 - gl_FragCoord.y * noise_scale);")
			fs.line("texel.a *= floor(random(vec3(floor(noise_coord), noise_frame)) + 0.5);")
		case WriteOutput:
			if st.Alpha {
				fs.line("gl_FragColor = texel;")
			} else {
				fs.line("gl_FragColor = vec4(texel, 1.0);")
			}
		}
	}
	fs.indent--
	fs.line("}")
	return vs.String(), fs.String()
}
