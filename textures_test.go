package combiner

import (
	"errors"
	"testing"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/combiner/shader"
	"github.com/gogpu/gputypes"
)

func newTestSlots(t *testing.T, threePoint bool) (*SlotTable, *backend.Recorder) {
	t.Helper()
	rec := backend.NewRecorder(shader.TargetWGSL)
	if err := rec.Init(64, 64); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	return NewSlotTable(rec, threePoint), rec
}

func TestWrapFromTileFlags(t *testing.T) {
	tests := []struct {
		cm   uint32
		want WrapMode
		addr gputypes.AddressMode
	}{
		{0, WrapRepeat, gputypes.AddressModeRepeat},
		{TileMirror, WrapMirror, gputypes.AddressModeMirrorRepeat},
		{TileClamp, WrapClamp, gputypes.AddressModeClampToEdge},
		{TileMirror | TileClamp, WrapClamp, gputypes.AddressModeClampToEdge},
		{4, WrapRepeat, gputypes.AddressModeRepeat},
	}
	for _, tt := range tests {
		got := WrapFromTileFlags(tt.cm)
		if got != tt.want {
			t.Errorf("WrapFromTileFlags(%d) = %v, want %v", tt.cm, got, tt.want)
		}
		if got.AddressMode() != tt.addr {
			t.Errorf("%v.AddressMode() = %v, want %v", got, got.AddressMode(), tt.addr)
		}
	}
	if s := WrapMode(9).String(); s != "WrapMode(9)" {
		t.Errorf("unknown WrapMode String() = %q", s)
	}
}

func TestSlotTableSelect(t *testing.T) {
	s, _ := newTestSlots(t, false)
	id := s.NewTexture()
	if id == 0 {
		t.Fatal("NewTexture() returned the zero id")
	}
	if s.NewTexture() == id {
		t.Error("NewTexture() reused an id")
	}

	for _, tc := range []struct {
		slot int
		id   TextureID
	}{{-1, id}, {2, id}, {0, 0}, {1, 99}} {
		if err := s.Select(tc.slot, tc.id); !errors.Is(err, ErrBadSlot) {
			t.Errorf("Select(%d, %d) = %v, want ErrBadSlot", tc.slot, tc.id, err)
		}
	}
	if err := s.Select(1, id); err != nil {
		t.Fatalf("Select(1) = %v", err)
	}
	if s.Selected(1) != id || s.Bound(1) == nil {
		t.Error("slot 1 not bound after Select")
	}
	if s.Bound(0) != nil || s.Bound(5) != nil {
		t.Error("unselected slot is bound")
	}
}

func TestSlotTableUpload(t *testing.T) {
	s, rec := newTestSlots(t, false)
	if err := s.Upload(make([]byte, 4), 1, 1); !errors.Is(err, ErrNoTexture) {
		t.Errorf("Upload() without a selection = %v, want ErrNoTexture", err)
	}

	a, b := s.NewTexture(), s.NewTexture()
	s.Select(0, a)
	s.Select(1, b)
	if err := s.Upload(make([]byte, 2*2*4), 2, 2); err != nil {
		t.Fatalf("Upload() = %v", err)
	}
	// The last Select chose slot 1.
	eb, _ := s.Entry(b)
	if eb.Texture == nil || eb.Width != 2 || eb.Height != 2 {
		t.Errorf("slot 1 entry = %+v", eb)
	}
	if ea, _ := s.Entry(a); ea.Texture != nil {
		t.Error("upload went to slot 0")
	}

	old := eb.Texture.(*backend.Recorded)
	if err := s.Upload(make([]byte, 4*4), 2, 2); err != nil {
		t.Fatalf("second Upload() = %v", err)
	}
	if !old.Destroyed {
		t.Error("replaced texture was not destroyed")
	}
	if rec.Live() != 1 {
		t.Errorf("live textures = %d, want 1", rec.Live())
	}

	if err := s.Upload(nil, 8, 8); err == nil {
		t.Error("short upload succeeded")
	}
	if eb, _ := s.Entry(b); eb.Texture.(*backend.Recorded).Destroyed {
		t.Error("failed upload destroyed the current texture")
	}
}

func TestSlotTableSamplers(t *testing.T) {
	s, _ := newTestSlots(t, false)
	if err := s.SetSamplerParameters(3, true, WrapRepeat, WrapRepeat); !errors.Is(err, ErrBadSlot) {
		t.Errorf("slot 3: %v", err)
	}
	if err := s.SetSamplerParameters(0, true, WrapRepeat, WrapRepeat); !errors.Is(err, ErrNoTexture) {
		t.Errorf("empty slot: %v", err)
	}

	s.Select(0, s.NewTexture())
	if err := s.SetSamplerParameters(0, true, WrapMirror, WrapClamp); err != nil {
		t.Fatalf("SetSamplerParameters() = %v", err)
	}
	e := s.Bound(0)
	first := e.Sampler.(*backend.Recorded)
	want := backend.SamplerDescriptor{
		Linear: true,
		WrapU:  gputypes.AddressModeMirrorRepeat,
		WrapV:  gputypes.AddressModeClampToEdge,
	}
	if first.Sampler != want {
		t.Errorf("sampler = %+v, want %+v", first.Sampler, want)
	}

	s.SetSamplerParameters(0, false, WrapRepeat, WrapRepeat)
	if !first.Destroyed {
		t.Error("previous sampler was not destroyed")
	}
	if e := s.Bound(0); e.Linear || e.WrapU != WrapRepeat {
		t.Errorf("entry = %+v after update", e)
	}
}

func TestSlotTableThreePoint(t *testing.T) {
	s, _ := newTestSlots(t, true)
	if !s.ThreePoint() {
		t.Fatal("ThreePoint() = false")
	}
	id := s.NewTexture()
	s.Select(0, id)
	s.Upload(make([]byte, 8*4*4), 8, 4)
	s.SetSamplerParameters(0, true, WrapRepeat, WrapRepeat)

	e, _ := s.Entry(id)
	if e.Sampler.(*backend.Recorded).Sampler.Linear {
		t.Error("three-point sampler filters linearly")
	}
	if !e.Linear {
		t.Error("entry lost the linear flag")
	}

	got := s.FilterUniforms([2]bool{true, true})
	want := backend.FilterUniforms{{8, 4, 1, 0}, {}}
	if got != want {
		t.Errorf("FilterUniforms() = %v, want %v", got, want)
	}
	if got := s.FilterUniforms([2]bool{}); got != (backend.FilterUniforms{}) {
		t.Errorf("FilterUniforms() for no slots = %v", got)
	}
}

func TestSlotTableClose(t *testing.T) {
	s, rec := newTestSlots(t, false)
	for slot := 0; slot < 2; slot++ {
		s.Select(slot, s.NewTexture())
		s.Upload(make([]byte, 4), 1, 1)
		s.SetSamplerParameters(slot, false, WrapClamp, WrapClamp)
	}
	if rec.Live() != 4 {
		t.Fatalf("live = %d, want 4", rec.Live())
	}
	s.Close()
	if rec.Live() != 0 {
		t.Errorf("live after Close = %d", rec.Live())
	}
	if _, ok := s.Entry(1); ok {
		t.Error("Entry() found a texture after Close")
	}
}
