// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"fmt"

	"github.com/gogpu/combiner/cc"
	"github.com/gogpu/gputypes"
)

// AttributeKind identifies what a vertex attribute carries.
type AttributeKind uint8

// Vertex attribute kinds, in buffer order.
const (
	AttrPosition AttributeKind = iota
	AttrTexCoord
	AttrFog
	AttrInput
)

// Attribute is one interleaved float attribute of the vertex buffer.
type Attribute struct {
	Kind AttributeKind
	// Index is the 1-based input number for AttrInput, otherwise 0.
	Index int
	// Components is the number of floats, 2..4.
	Components int
	// Location is the shader location, equal to the attribute's position in
	// the layout.
	Location uint32
	// Offset is the offset in floats from the start of the vertex.
	Offset int
}

// Name is the vertex-stage attribute name (aVtxPos, aTexCoord, aFog, aInputN).
func (a Attribute) Name() string {
	switch a.Kind {
	case AttrPosition:
		return "aVtxPos"
	case AttrTexCoord:
		return "aTexCoord"
	case AttrFog:
		return "aFog"
	}
	return fmt.Sprintf("aInput%d", a.Index)
}

// Varying is the name the attribute is forwarded under, empty for position.
func (a Attribute) Varying() string {
	switch a.Kind {
	case AttrPosition:
		return ""
	case AttrTexCoord:
		return "vTexCoord"
	case AttrFog:
		return "vFog"
	}
	return fmt.Sprintf("vInput%d", a.Index)
}

// Format is the GPU vertex format of the attribute.
func (a Attribute) Format() gputypes.VertexFormat {
	switch a.Components {
	case 1:
		return gputypes.VertexFormatFloat32
	case 2:
		return gputypes.VertexFormatFloat32x2
	case 3:
		return gputypes.VertexFormatFloat32x3
	}
	return gputypes.VertexFormatFloat32x4
}

// Layout is the interleaved vertex layout of a program.
type Layout struct {
	Attributes []Attribute
}

// NewLayout derives the vertex layout of c: position, then texture
// coordinate when any texture is used, fog when FOG is set, then one
// attribute per interpolated input.
func NewLayout(c cc.Combiner) Layout {
	var l Layout
	add := func(kind AttributeKind, index, components int) {
		l.Attributes = append(l.Attributes, Attribute{
			Kind:       kind,
			Index:      index,
			Components: components,
			Location:   uint32(len(l.Attributes)),
			Offset:     l.StrideFloats(),
		})
	}
	add(AttrPosition, 0, 4)
	if c.UsesTexture() {
		add(AttrTexCoord, 0, 2)
	}
	if c.Fog {
		add(AttrFog, 0, 4)
	}
	for i := 1; i <= c.NumInputs; i++ {
		add(AttrInput, i, c.InputComponents())
	}
	return l
}

// StrideFloats is the number of floats per vertex.
func (l Layout) StrideFloats() int {
	n := 0
	for _, a := range l.Attributes {
		n += a.Components
	}
	return n
}

// StrideBytes is the vertex stride in bytes.
func (l Layout) StrideBytes() uint64 {
	return uint64(l.StrideFloats()) * 4
}

// VertexBufferLayout describes l for pipeline creation.
func (l Layout) VertexBufferLayout() gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, len(l.Attributes))
	for i, a := range l.Attributes {
		attrs[i] = gputypes.VertexAttribute{
			Format:         a.Format(),
			Offset:         uint64(a.Offset) * 4,
			ShaderLocation: a.Location,
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: l.StrideBytes(),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}
