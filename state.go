package combiner

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/gputypes"
)

// stateField indexes the fields of a Snapshot.
type stateField uint8

const (
	fieldDepth stateField = iota
	fieldDecal
	fieldTexture0
	fieldTexture1
	fieldSampler0
	fieldSampler1
	fieldFilter
	fieldStride
	fieldProgram
	fieldBlend
	fieldTopology
	numFields
)

var fieldNames = [numFields]string{
	fieldDepth:    "depth",
	fieldDecal:    "decal",
	fieldTexture0: "texture0",
	fieldTexture1: "texture1",
	fieldSampler0: "sampler0",
	fieldSampler1: "sampler1",
	fieldFilter:   "filter",
	fieldStride:   "stride",
	fieldProgram:  "program",
	fieldBlend:    "blend",
	fieldTopology: "topology",
}

// Snapshot is the state last applied to the device. A field is only
// meaningful while its valid bit is set.
type Snapshot struct {
	DepthTest bool
	DepthMask bool
	Decal     bool
	Textures  [2]backend.Resource
	Samplers  [2]backend.Resource
	Filter    backend.FilterUniforms
	Stride    uint64
	Program   backend.Resource
	Blend     bool
	Topology  gputypes.PrimitiveTopology

	valid uint16
}

func (s *Snapshot) has(f stateField) bool { return s.valid&(1<<f) != 0 }
func (s *Snapshot) mark(f stateField)     { s.valid |= 1 << f }

// Valid reports whether the named field was applied since the last
// invalidation. Unknown names report false.
func (s Snapshot) Valid(name string) bool {
	for f, n := range fieldNames {
		if n == name {
			return s.has(stateField(f))
		}
	}
	return false
}

// StateStats counts device calls per state field.
type StateStats struct {
	Changes [numFields]uint64
	Draws   uint64
}

// Changed returns the change count of the named field.
func (s StateStats) Changed(name string) uint64 {
	for f, n := range fieldNames {
		if n == name {
			return s.Changes[f]
		}
	}
	return 0
}

// LogValue implements slog.LogValuer.
func (s StateStats) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, numFields+1)
	attrs = append(attrs, slog.Uint64("draws", s.Draws))
	for f, n := range fieldNames {
		attrs = append(attrs, slog.Uint64(n, s.Changes[f]))
	}
	return slog.GroupValue(attrs...)
}

// StateTracker reconciles the requested draw state with the state last
// applied to the device and only issues the calls that change something.
type StateTracker struct {
	dev   backend.Device
	slots *SlotTable

	program   *Program
	depthTest bool
	depthMask bool
	decal     bool
	useAlpha  bool

	snap  Snapshot
	stats StateStats
}

// NewStateTracker creates a tracker that draws on dev with the textures
// of slots.
func NewStateTracker(dev backend.Device, slots *SlotTable) *StateTracker {
	return &StateTracker{dev: dev, slots: slots, useAlpha: true}
}

// Prepare records the state for the next Draw.
func (t *StateTracker) Prepare(p *Program, depthTest, depthMask, decal bool) {
	t.program = p
	t.depthTest = depthTest
	t.depthMask = depthMask
	t.decal = decal
}

// SetProgram records the program for the next Draw.
func (t *StateTracker) SetProgram(p *Program) { t.program = p }

// Program returns the prepared program.
func (t *StateTracker) Program() *Program { return t.program }

// SetDepth records the depth test and write flags.
func (t *StateTracker) SetDepth(test, mask bool) {
	t.depthTest = test
	t.depthMask = mask
}

// SetDecal records the decal depth mode.
func (t *StateTracker) SetDecal(decal bool) { t.decal = decal }

// SetUseAlpha gates blending. Blending is on when useAlpha is set and
// the program has a blend state.
func (t *StateTracker) SetUseAlpha(useAlpha bool) { t.useAlpha = useAlpha }

// Invalidate forgets the applied state, so the next Draw sets every field.
func (t *StateTracker) Invalidate() { t.snap = Snapshot{} }

// Forget drops p from the prepared and applied state.
func (t *StateTracker) Forget(p *Program) {
	if t.program == p {
		t.program = nil
	}
	if p != nil && t.snap.Program == p.resource {
		t.snap.Program = nil
		t.snap.valid &^= 1 << fieldProgram
	}
}

// Snapshot returns the applied state.
func (t *StateTracker) Snapshot() Snapshot { return t.snap }

// Stats returns the change counters.
func (t *StateTracker) Stats() StateStats { return t.stats }

func (t *StateTracker) changed(f stateField) {
	t.snap.mark(f)
	t.stats.Changes[f]++
	Logger().Debug("combiner: state change", "field", fieldNames[f])
}

// Draw draws triangles from the first floatCount floats of vertices.
func (t *StateTracker) Draw(vertices []float32, floatCount, triangles int) error {
	p := t.program
	if p == nil || p.resource == nil {
		Logger().Warn("combiner: draw without a program", "triangles", triangles)
		return ErrNoProgram
	}
	if floatCount < 0 || floatCount > len(vertices) || triangles < 0 || floatCount < triangles*3*p.NumFloats {
		Logger().Warn("combiner: short vertex data",
			"floats", floatCount, "len", len(vertices), "triangles", triangles, "stride", p.NumFloats)
		return fmt.Errorf("%w: %d floats for %d triangles of %d floats per vertex",
			ErrShortVertexData, floatCount, triangles, p.NumFloats)
	}
	for slot, used := range p.UsedTextures {
		if used && (t.slots.Bound(slot) == nil || t.slots.Bound(slot).Texture == nil) {
			Logger().Warn("combiner: draw samples an empty slot", "slot", slot, "mode", p.Mode)
			return fmt.Errorf("%w: slot %d", ErrNoTexture, slot)
		}
	}

	s := &t.snap

	if !s.has(fieldDepth) || s.DepthTest != t.depthTest || s.DepthMask != t.depthMask {
		t.dev.SetDepthStencil(t.depthTest, t.depthMask)
		s.DepthTest, s.DepthMask = t.depthTest, t.depthMask
		t.changed(fieldDepth)
	}

	if !s.has(fieldDecal) || s.Decal != t.decal {
		t.dev.SetDecal(t.decal)
		s.Decal = t.decal
		t.changed(fieldDecal)
	}

	for slot, used := range p.UsedTextures {
		if !used {
			continue
		}
		e := t.slots.Bound(slot)
		if f := fieldTexture0 + stateField(slot); !s.has(f) || s.Textures[slot] != e.Texture {
			t.dev.SetTexture(slot, e.Texture)
			s.Textures[slot] = e.Texture
			t.changed(f)
		}
	}
	for slot, used := range p.UsedTextures {
		if !used {
			continue
		}
		// A nil sampler selects the device default.
		e := t.slots.Bound(slot)
		if f := fieldSampler0 + stateField(slot); !s.has(f) || s.Samplers[slot] != e.Sampler {
			t.dev.SetSampler(slot, e.Sampler)
			s.Samplers[slot] = e.Sampler
			t.changed(f)
		}
	}

	if t.slots.ThreePoint() {
		u := t.slots.FilterUniforms(p.UsedTextures)
		if !s.has(fieldFilter) || s.Filter != u {
			t.dev.SetFilterUniforms(u)
			s.Filter = u
			t.changed(fieldFilter)
		}
	}

	if err := t.dev.WriteVertices(vertices[:floatCount]); err != nil {
		return fmt.Errorf("combiner: write vertices: %w", err)
	}

	stride := p.Layout.StrideBytes()
	if !s.has(fieldStride) || s.Stride != stride {
		t.dev.SetVertexStride(stride)
		s.Stride = stride
		t.changed(fieldStride)
	}

	if !s.has(fieldProgram) || s.Program != p.resource {
		t.dev.SetProgram(p.resource)
		s.Program = p.resource
		t.changed(fieldProgram)
	}
	blend := t.useAlpha && p.Blend != nil
	if !s.has(fieldBlend) || s.Blend != blend {
		t.dev.SetBlend(blend)
		s.Blend = blend
		t.changed(fieldBlend)
	}

	if !s.has(fieldTopology) || s.Topology != gputypes.PrimitiveTopologyTriangleList {
		t.dev.SetTopology(gputypes.PrimitiveTopologyTriangleList)
		s.Topology = gputypes.PrimitiveTopologyTriangleList
		t.changed(fieldTopology)
	}

	t.stats.Draws++
	if err := t.dev.Draw(uint32(triangles * 3)); err != nil {
		return fmt.Errorf("combiner: draw: %w", err)
	}
	return nil
}
