package backend

import (
	"errors"
	"testing"

	"github.com/gogpu/combiner/cc"
	"github.com/gogpu/combiner/shader"
	"github.com/gogpu/gputypes"
)

func wgslSource(t *testing.T, m cc.ModeWord) *shader.Source {
	t.Helper()
	src, err := shader.Generate(cc.Decode(m), shader.TargetWGSL, shader.Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return src
}

func newRecorder(t *testing.T) *Recorder {
	t.Helper()
	r := NewRecorder(shader.TargetWGSL)
	if err := r.Init(320, 240); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return r
}

func TestRecorderName(t *testing.T) {
	r := NewRecorder(shader.TargetGLSL)
	if r.Name() != "recorder" {
		t.Errorf("Name() = %q, want %q", r.Name(), "recorder")
	}
	if r.ZIsFrom0To1() {
		t.Error("GLSL recorder should report depth in [-1, 1]")
	}
	if !NewRecorder(shader.TargetHLSL).ZIsFrom0To1() {
		t.Error("HLSL recorder should report depth in [0, 1]")
	}
}

func TestRecorderRequiresInit(t *testing.T) {
	r := NewRecorder(shader.TargetWGSL)
	if _, err := r.CreateSampler(SamplerDescriptor{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("CreateSampler before Init: err = %v", err)
	}
	if err := r.StartFrame(FrameConstants{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("StartFrame before Init: err = %v", err)
	}
}

func TestRecorderCompileProgram(t *testing.T) {
	r := newRecorder(t)
	defer r.Close()

	blend := gputypes.BlendStateAlpha()
	p, err := r.CompileProgram(wgslSource(t, 0), &blend)
	if err != nil {
		t.Fatalf("CompileProgram() error = %v", err)
	}
	rec := p.(*Recorded)
	if rec.Kind != "program" || rec.Blend == nil || p.Label() != "program#1" {
		t.Errorf("program = %+v", rec)
	}

	glsl, err := shader.Generate(cc.Decode(0), shader.TargetGLSL, shader.Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.CompileProgram(glsl, nil)
	var ce *CompileError
	if !errors.As(err, &ce) || !errors.Is(err, ErrWrongTarget) {
		t.Errorf("wrong target: err = %v", err)
	}
}

func TestRecorderFailCompile(t *testing.T) {
	r := newRecorder(t)
	defer r.Close()

	boom := errors.New("boom")
	r.FailCompile = func(src *shader.Source) error {
		if src.Mode == 7 {
			return boom
		}
		return nil
	}
	if _, err := r.CompileProgram(wgslSource(t, 0), nil); err != nil {
		t.Errorf("mode 0 should build: %v", err)
	}
	_, err := r.CompileProgram(wgslSource(t, 7), nil)
	var ce *CompileError
	if !errors.As(err, &ce) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want CompileError wrapping boom", err)
	}
	if ce.Mode != 7 || ce.Log == "" {
		t.Errorf("CompileError = %+v", ce)
	}
}

func TestRecorderResources(t *testing.T) {
	r := newRecorder(t)
	defer r.Close()

	tex, err := r.CreateTexture(make([]byte, 2*2*4), 2, 2)
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if _, err := r.CreateTexture(make([]byte, 3), 2, 2); err == nil {
		t.Error("short pixel data should fail")
	}
	s, err := r.CreateSampler(SamplerDescriptor{Linear: true, WrapU: gputypes.AddressModeRepeat})
	if err != nil {
		t.Fatalf("CreateSampler() error = %v", err)
	}
	if r.Live() != 2 {
		t.Errorf("Live() = %d, want 2", r.Live())
	}

	r.Destroy(tex)
	r.Destroy(tex)
	r.Destroy(nil)
	r.Destroy(NewRecorder(shader.TargetWGSL).create("texture"))
	if r.Live() != 1 || !tex.(*Recorded).Destroyed {
		t.Errorf("after Destroy: Live() = %d", r.Live())
	}
	if r.Calls["Destroy"] != 1 {
		t.Errorf("Destroy counted %d times", r.Calls["Destroy"])
	}
	r.Destroy(s)
	if r.Live() != 0 {
		t.Errorf("Live() = %d, want 0", r.Live())
	}
}

func TestRecorderDrawSnapshot(t *testing.T) {
	r := newRecorder(t)
	defer r.Close()

	if err := r.Draw(3); err == nil {
		t.Error("Draw without program should fail")
	}

	p, err := r.CompileProgram(wgslSource(t, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	r.SetProgram(p)
	r.SetDepthStencil(true, false)
	r.SetVertexStride(16)
	if err := r.WriteVertices([]float32{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := r.Draw(3); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := r.WriteVertices([]float32{5}); err != nil {
		t.Fatal(err)
	}

	if len(r.Draws) != 1 {
		t.Fatalf("Draws = %d, want 1", len(r.Draws))
	}
	d := r.Draws[0]
	if d.VertexCount != 3 || d.Stride != 16 || !d.DepthTest || d.DepthMask || d.Program != p {
		t.Errorf("draw = %+v", d)
	}
	if len(d.Vertices) != 4 || d.Vertices[0] != 1 {
		t.Errorf("draw vertices = %v, want a copy of the first batch", d.Vertices)
	}

	r.Reset()
	if len(r.Draws) != 0 || len(r.Log) != 0 || r.Calls["Draw"] != 0 {
		t.Error("Reset() left records behind")
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	// Recorder backend is auto-registered via init()
	if !IsRegistered("recorder") {
		t.Error("recorder backend should be auto-registered")
	}

	d := Get("recorder")
	if d == nil {
		t.Fatal("Get(recorder) returned nil")
	}
	if d.Name() != "recorder" {
		t.Errorf("Get(recorder).Name() = %q, want %q", d.Name(), "recorder")
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	if d := Get("nonexistent"); d != nil {
		t.Error("Get(nonexistent) should return nil")
	}
}

func TestRegistryAvailable(t *testing.T) {
	found := false
	for _, name := range Available() {
		if name == "recorder" {
			found = true
			break
		}
	}
	if !found {
		t.Error("Available() should include 'recorder'")
	}
}

func TestRegistryDefault(t *testing.T) {
	d := Default()
	if d == nil {
		t.Fatal("Default() returned nil")
	}
	// Recorder is the default when no GPU backend is linked in
	if d.Name() != "recorder" {
		t.Logf("Default() returned %q (may vary based on available backends)", d.Name())
	}
}

func TestRegistryMustDefault(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	if d := MustDefault(); d == nil {
		t.Error("MustDefault() returned nil")
	}
}

func TestRegistryInitDefault(t *testing.T) {
	d, err := InitDefault(64, 48)
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	if d == nil {
		t.Fatal("InitDefault() returned nil device")
	}
	defer d.Close()

	if _, err := d.CreateSampler(SamplerDescriptor{}); err != nil {
		t.Errorf("device from InitDefault() should be usable: %v", err)
	}
}

func TestRegistryUnregister(t *testing.T) {
	Register("test-backend", func() Device { return NewRecorder(shader.TargetGLSL) })

	if !IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}

	Unregister("test-backend")

	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}

func BenchmarkRecorderDraw(b *testing.B) {
	r := NewRecorder(shader.TargetWGSL)
	_ = r.Init(320, 240)
	defer r.Close()

	src, _ := shader.Generate(cc.Decode(0), shader.TargetWGSL, shader.Options{})
	p, _ := r.CompileProgram(src, nil)
	r.SetProgram(p)
	vertices := make([]float32, 12)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.WriteVertices(vertices)
		_ = r.Draw(3)
		r.Draws = r.Draws[:0]
	}
}
