package combiner

import (
	"fmt"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/gputypes"
)

// TextureID names a texture in the slot table. The zero value is no
// texture.
type TextureID uint32

// WrapMode is the addressing of one texture axis.
type WrapMode uint8

const (
	WrapRepeat WrapMode = iota
	WrapMirror
	WrapClamp
)

// Tile flag bits of an N64 tile descriptor's cms/cmt field.
const (
	TileMirror = 1 << 0
	TileClamp  = 1 << 1
)

// WrapFromTileFlags converts an N64 tile cms/cmt value. Clamp wins over
// mirror.
func WrapFromTileFlags(cm uint32) WrapMode {
	switch {
	case cm&TileClamp != 0:
		return WrapClamp
	case cm&TileMirror != 0:
		return WrapMirror
	default:
		return WrapRepeat
	}
}

// AddressMode returns the sampler address mode for w.
func (w WrapMode) AddressMode() gputypes.AddressMode {
	switch w {
	case WrapClamp:
		return gputypes.AddressModeClampToEdge
	case WrapMirror:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeRepeat
	}
}

func (w WrapMode) String() string {
	switch w {
	case WrapRepeat:
		return "repeat"
	case WrapMirror:
		return "mirror"
	case WrapClamp:
		return "clamp"
	default:
		return fmt.Sprintf("WrapMode(%d)", uint8(w))
	}
}

// TextureEntry is the device state of one texture id.
type TextureEntry struct {
	Texture backend.Resource
	Sampler backend.Resource

	Linear bool
	WrapU  WrapMode
	WrapV  WrapMode

	Width  int
	Height int
}

// SlotTable maps texture ids to device textures and samplers and tracks
// the id selected into each of the two slots. The most recent Select
// picks the slot that Upload writes to.
type SlotTable struct {
	dev        backend.Device
	threePoint bool

	entries  []TextureEntry
	selected [2]TextureID
	current  int
}

// NewSlotTable creates an empty slot table on dev. With threePoint the
// samplers are always nearest and the linear flag is exported through
// FilterUniforms instead.
func NewSlotTable(dev backend.Device, threePoint bool) *SlotTable {
	return &SlotTable{dev: dev, threePoint: threePoint}
}

// NewTexture allocates a texture id.
func (t *SlotTable) NewTexture() TextureID {
	t.entries = append(t.entries, TextureEntry{})
	return TextureID(len(t.entries))
}

func (t *SlotTable) entry(id TextureID) *TextureEntry {
	if id == 0 || int(id) > len(t.entries) {
		return nil
	}
	return &t.entries[id-1]
}

// Select binds id to slot and makes slot the upload target.
func (t *SlotTable) Select(slot int, id TextureID) error {
	if slot < 0 || slot > 1 || t.entry(id) == nil {
		return fmt.Errorf("%w: slot %d id %d", ErrBadSlot, slot, id)
	}
	t.selected[slot] = id
	t.current = slot
	return nil
}

// Upload replaces the texture selected into the current slot with
// tightly packed RGBA8 pixels.
func (t *SlotTable) Upload(pixels []byte, width, height int) error {
	e := t.entry(t.selected[t.current])
	if e == nil {
		return fmt.Errorf("%w: upload to slot %d", ErrNoTexture, t.current)
	}
	tex, err := t.dev.CreateTexture(pixels, width, height)
	if err != nil {
		return fmt.Errorf("combiner: upload texture: %w", err)
	}
	t.dev.Destroy(e.Texture)
	e.Texture = tex
	e.Width = width
	e.Height = height
	return nil
}

// SetSamplerParameters rebuilds the sampler of the texture selected into
// slot.
func (t *SlotTable) SetSamplerParameters(slot int, linear bool, wrapU, wrapV WrapMode) error {
	if slot < 0 || slot > 1 {
		return fmt.Errorf("%w: slot %d", ErrBadSlot, slot)
	}
	e := t.entry(t.selected[slot])
	if e == nil {
		return fmt.Errorf("%w: sampler for slot %d", ErrNoTexture, slot)
	}
	desc := backend.SamplerDescriptor{
		Linear: linear && !t.threePoint,
		WrapU:  wrapU.AddressMode(),
		WrapV:  wrapV.AddressMode(),
	}
	s, err := t.dev.CreateSampler(desc)
	if err != nil {
		return fmt.Errorf("combiner: create sampler: %w", err)
	}
	t.dev.Destroy(e.Sampler)
	e.Sampler = s
	e.Linear = linear
	e.WrapU = wrapU
	e.WrapV = wrapV
	return nil
}

// Entry returns the entry of id.
func (t *SlotTable) Entry(id TextureID) (TextureEntry, bool) {
	e := t.entry(id)
	if e == nil {
		return TextureEntry{}, false
	}
	return *e, true
}

// Bound returns the entry selected into slot, or nil.
func (t *SlotTable) Bound(slot int) *TextureEntry {
	if slot < 0 || slot > 1 {
		return nil
	}
	return t.entry(t.selected[slot])
}

// Selected returns the id selected into slot.
func (t *SlotTable) Selected(slot int) TextureID {
	if slot < 0 || slot > 1 {
		return 0
	}
	return t.selected[slot]
}

// ThreePoint reports whether three-point filtering is enabled.
func (t *SlotTable) ThreePoint() bool { return t.threePoint }

// FilterUniforms returns (width, height, linear, 0) for each used slot.
func (t *SlotTable) FilterUniforms(used [2]bool) backend.FilterUniforms {
	var u backend.FilterUniforms
	for slot := range used {
		if !used[slot] {
			continue
		}
		e := t.Bound(slot)
		if e == nil {
			continue
		}
		u[slot][0] = float32(e.Width)
		u[slot][1] = float32(e.Height)
		if e.Linear {
			u[slot][2] = 1
		}
	}
	return u
}

// Close destroys every texture and sampler.
func (t *SlotTable) Close() {
	for i := range t.entries {
		e := &t.entries[i]
		t.dev.Destroy(e.Texture)
		t.dev.Destroy(e.Sampler)
		*e = TextureEntry{}
	}
	t.entries = nil
	t.selected = [2]TextureID{}
	t.current = 0
}
