package combiner

import (
	"errors"
	"testing"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/combiner/cc"
	"github.com/gogpu/combiner/shader"
)

var (
	// texel0 * input1, stride 4 + 2 + 3.
	modeModulate = cc.Pack(
		cc.Formula{A: cc.Texel0, B: cc.Zero, C: cc.Input1, D: cc.Zero},
		cc.Formula{A: cc.Texel0, B: cc.Zero, C: cc.Input1, D: cc.Zero}, 0)
	// input1, stride 4 + 3.
	modeShade = cc.Pack(cc.Formula{D: cc.Input1}, cc.Formula{D: cc.Input1}, 0)
	// input1 with alpha, stride 4 + 4.
	modeShadeAlpha = modeShade | cc.FlagAlpha
)

func newTestRenderer(t *testing.T, opts ...Option) (*Renderer, *backend.Recorder) {
	t.Helper()
	rec := backend.NewRecorder(shader.TargetWGSL)
	r, err := NewRenderer(append([]Option{WithDevice(rec)}, opts...)...)
	if err != nil {
		t.Fatalf("NewRenderer() = %v", err)
	}
	if err := r.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	t.Cleanup(r.Close)
	return r, rec
}

// bindTexture creates a 1x1 texture in slot with a linear sampler.
func bindTexture(t *testing.T, r *Renderer, slot int) TextureID {
	t.Helper()
	id := r.NewTexture()
	if err := r.SelectTexture(slot, id); err != nil {
		t.Fatalf("SelectTexture() = %v", err)
	}
	if err := r.UploadTexture([]byte{255, 0, 0, 255}, 1, 1); err != nil {
		t.Fatalf("UploadTexture() = %v", err)
	}
	if err := r.SetSamplerParameters(slot, true, 0, 0); err != nil {
		t.Fatalf("SetSamplerParameters() = %v", err)
	}
	return id
}

func TestNewRendererDefaultDevice(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() = %v", err)
	}
	defer r.Close()
	if got := r.Device().Name(); got != backend.BackendRecorder {
		t.Errorf("default device = %q, want %q", got, backend.BackendRecorder)
	}
}

func TestNewRendererUnknownDevice(t *testing.T) {
	_, err := NewRenderer(WithDeviceName("no-such-device"))
	if !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("NewRenderer() = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRendererShaderLifecycle(t *testing.T) {
	r, rec := newTestRenderer(t)

	if p := r.LookupShader(modeModulate); p != nil {
		t.Fatal("LookupShader() found a program before it was built")
	}
	p := r.CreateAndLoadNewShader(modeModulate)
	if p == nil {
		t.Fatal("CreateAndLoadNewShader() = nil")
	}
	if r.LookupShader(modeModulate) != p {
		t.Error("LookupShader() did not return the built program")
	}
	if again := r.CreateAndLoadNewShader(modeModulate); again != p {
		t.Error("second CreateAndLoadNewShader() returned another program")
	}
	if got := r.Programs().Compiles(); got != 1 {
		t.Errorf("Compiles() = %d, want 1", got)
	}
	if got := rec.Calls["CompileProgram"]; got != 1 {
		t.Errorf("device compiled %d programs, want 1", got)
	}

	n, used := r.ShaderInfo(p)
	if n != 1 || used != [2]bool{true, false} {
		t.Errorf("ShaderInfo() = %d, %v; want 1, [true false]", n, used)
	}
	if p.NumFloats != 9 {
		t.Errorf("NumFloats = %d, want 9", p.NumFloats)
	}
	if p.Blend != nil {
		t.Error("opaque program has a blend state")
	}

	r.UnloadShader(p)
	if r.Tracker().Program() != nil {
		t.Error("UnloadShader() kept the program loaded")
	}
	r.LoadShader(p)
	if r.Tracker().Program() != p {
		t.Error("LoadShader() did not load the program")
	}
}

func TestRendererEndToEnd(t *testing.T) {
	r, rec := newTestRenderer(t)
	bindTexture(t, r, 0)

	if err := r.StartFrame(); err != nil {
		t.Fatalf("StartFrame() = %v", err)
	}
	p := r.CreateAndLoadNewShader(modeModulate)
	r.SetDepthTest(true)
	r.SetDepthMask(true)
	vertices := make([]float32, 3*p.NumFloats)
	if err := r.DrawTriangles(vertices, len(vertices), 1); err != nil {
		t.Fatalf("DrawTriangles() = %v", err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatalf("EndFrame() = %v", err)
	}
	r.FinishRender()

	if len(rec.Draws) != 1 {
		t.Fatalf("recorded %d draws, want 1", len(rec.Draws))
	}
	d := rec.Draws[0]
	if d.VertexCount != 3 || d.Stride != 36 {
		t.Errorf("draw = %d vertices stride %d, want 3 stride 36", d.VertexCount, d.Stride)
	}
	if !d.DepthTest || !d.DepthMask {
		t.Error("depth state not applied")
	}
	if d.Program != p.Resource() {
		t.Error("draw used another program")
	}
	if d.Textures[0] == nil || d.Samplers[0] == nil || !d.Samplers[0].Sampler.Linear {
		t.Error("slot 0 texture or linear sampler not bound")
	}
}

func TestRendererDrawErrors(t *testing.T) {
	r, _ := newTestRenderer(t)
	if err := r.DrawTriangles(nil, 0, 0); !errors.Is(err, ErrNoFrame) {
		t.Errorf("draw outside a frame = %v, want ErrNoFrame", err)
	}
	if err := r.EndFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("EndFrame() outside a frame = %v, want ErrNoFrame", err)
	}
	if err := r.StartFrame(); err != nil {
		t.Fatalf("StartFrame() = %v", err)
	}
	if err := r.DrawTriangles(make([]float32, 21), 21, 1); !errors.Is(err, ErrNoProgram) {
		t.Errorf("draw without a program = %v, want ErrNoProgram", err)
	}
}

func TestRendererStartFrameBeforeInit(t *testing.T) {
	r, err := NewRenderer(WithDevice(backend.NewRecorder(shader.TargetWGSL)))
	if err != nil {
		t.Fatalf("NewRenderer() = %v", err)
	}
	defer r.Close()
	if err := r.StartFrame(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("StartFrame() = %v, want ErrNotInitialized", err)
	}
}

func TestRendererViewportFlip(t *testing.T) {
	r, rec := newTestRenderer(t)

	r.SetViewport(10, 20, 100, 50)
	if got := rec.State.Viewport; got != [4]int{10, 20, 100, 50} {
		t.Errorf("bottom-left device viewport = %v", got)
	}

	rec.TopLeft = true
	r.SetViewport(10, 20, 100, 50)
	if got := rec.State.Viewport; got != [4]int{10, 410, 100, 50} {
		t.Errorf("top-left device viewport = %v, want y flipped to 410", got)
	}
	r.SetScissor(0, 0, 640, 240)
	if got := rec.State.Scissor; got != [4]int{0, 240, 640, 240} {
		t.Errorf("top-left device scissor = %v, want y flipped to 240", got)
	}
}

func TestRendererNoiseFrameConstants(t *testing.T) {
	r, rec := newTestRenderer(t)
	r.SetViewport(0, 0, 640, 480)

	for i := 0; i < NoiseFrameWrap+1; i++ {
		if err := r.StartFrame(); err != nil {
			t.Fatalf("StartFrame() = %v", err)
		}
		if err := r.EndFrame(); err != nil {
			t.Fatalf("EndFrame() = %v", err)
		}
	}
	if got := rec.Frames[0].NoiseFrame; got != 1 {
		t.Errorf("first frame noise = %v, want 1", got)
	}
	if got := rec.Frames[NoiseFrameWrap-1].NoiseFrame; got != NoiseFrameWrap {
		t.Errorf("frame %d noise = %v, want %d", NoiseFrameWrap, got, NoiseFrameWrap)
	}
	if got := rec.Frames[NoiseFrameWrap].NoiseFrame; got != 0 {
		t.Errorf("frame after wrap noise = %v, want 0", got)
	}
	if got := rec.Frames[0].NoiseScale; got != 0.5 {
		t.Errorf("noise scale = %v, want 240/480", got)
	}
}

func TestRendererNoiseScaleFollowsWindow(t *testing.T) {
	r, rec := newTestRenderer(t)
	r.SetViewport(0, 0, 320, 120)
	if err := r.StartFrame(); err != nil {
		t.Fatalf("StartFrame() = %v", err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatalf("EndFrame() = %v", err)
	}
	if got := rec.Frames[0].NoiseScale; got != 0.5 {
		t.Errorf("noise scale = %v, want 240/480 from the window", got)
	}

	if err := r.OnResize(640, 240); err != nil {
		t.Fatalf("OnResize() = %v", err)
	}
	r.StartFrame()
	r.EndFrame()
	if got := rec.Frames[1].NoiseScale; got != 1 {
		t.Errorf("noise scale after resize = %v, want 1", got)
	}
}

func TestRendererStateCarriesAcrossFrames(t *testing.T) {
	r, rec := newTestRenderer(t)
	bindTexture(t, r, 0)
	p := r.CreateAndLoadNewShader(modeModulate)
	r.SetDepthTest(true)
	vertices := make([]float32, 3*p.NumFloats)

	for frame := 0; frame < 2; frame++ {
		rec.Reset()
		if err := r.StartFrame(); err != nil {
			t.Fatalf("StartFrame() = %v", err)
		}
		for i := 0; i < 3; i++ {
			if err := r.DrawTriangles(vertices, len(vertices), 1); err != nil {
				t.Fatalf("DrawTriangles() = %v", err)
			}
		}
		if err := r.EndFrame(); err != nil {
			t.Fatalf("EndFrame() = %v", err)
		}
		if frame == 0 {
			continue
		}
		for call, n := range rec.Calls {
			switch call {
			case "StartFrame", "EndFrame":
			case "WriteVertices", "Draw":
				if n != 3 {
					t.Errorf("%s called %d times, want 3", call, n)
				}
			default:
				t.Errorf("frame 1 re-applied unchanged state: %s x%d", call, n)
			}
		}
	}

	r.SetZModeDecal(true)
	rec.Reset()
	r.StartFrame()
	r.DrawTriangles(vertices, len(vertices), 1)
	r.EndFrame()
	if rec.Calls["SetDecal"] != 1 || rec.Calls["SetProgram"] != 0 {
		t.Errorf("decal change: SetDecal %d SetProgram %d, want 1 and 0",
			rec.Calls["SetDecal"], rec.Calls["SetProgram"])
	}
}

func TestRendererOnResize(t *testing.T) {
	r, rec := newTestRenderer(t)
	if err := r.OnResize(320, 240); err != nil {
		t.Fatalf("OnResize() = %v", err)
	}
	if w, h := rec.Size(); w != 320 || h != 240 {
		t.Errorf("device size = %dx%d, want 320x240", w, h)
	}
	if err := r.OnResize(0, 240); err == nil {
		t.Error("OnResize(0, 240) succeeded")
	}

	rec.TopLeft = true
	r.SetScissor(0, 0, 10, 10)
	if got := rec.State.Scissor[1]; got != 230 {
		t.Errorf("scissor y = %d, want flip against the resized height", got)
	}
}

func TestRendererBuildFailureIsFatal(t *testing.T) {
	boom := errors.New("boom")
	var fatal error
	r, rec := newTestRenderer(t, WithFatalHandler(func(err error) { fatal = err }))
	rec.FailCompile = func(*shader.Source) error { return boom }

	if p := r.CreateAndLoadNewShader(modeShade); p != nil {
		t.Fatal("failed build returned a program")
	}
	var be *BuildError
	if !errors.As(fatal, &be) {
		t.Fatalf("fatal handler got %v, want *BuildError", fatal)
	}
	if !errors.Is(fatal, boom) {
		t.Error("BuildError does not wrap the device error")
	}
	if be.Mode != modeShade || be.Source == nil || be.Log == "" {
		t.Errorf("BuildError = %+v, want mode, source and log", be)
	}
	if r.Programs().Len() != 0 {
		t.Error("failed program stayed in the cache")
	}
}

func TestRendererBuildFailurePanicsByDefault(t *testing.T) {
	r, rec := newTestRenderer(t)
	rec.FailCompile = func(*shader.Source) error { return errors.New("boom") }

	defer func() {
		if _, ok := recover().(*BuildError); !ok {
			t.Error("default fatal handler did not panic with *BuildError")
		}
	}()
	r.CreateAndLoadNewShader(modeShade)
}

func TestRendererResourceErrors(t *testing.T) {
	var fatal []error
	r, _ := newTestRenderer(t, WithFatalHandler(func(err error) { fatal = append(fatal, err) }))

	if err := r.UploadTexture([]byte{0, 0, 0, 0}, 1, 1); !errors.Is(err, ErrNoTexture) {
		t.Errorf("upload without a texture = %v, want ErrNoTexture", err)
	}
	if err := r.SelectTexture(2, 1); !errors.Is(err, ErrBadSlot) {
		t.Errorf("SelectTexture(2) = %v, want ErrBadSlot", err)
	}
	if len(fatal) != 0 {
		t.Errorf("contract violations reached the fatal handler: %v", fatal)
	}

	r.SelectTexture(0, r.NewTexture())
	if err := r.UploadTexture([]byte{0}, 4, 4); err == nil {
		t.Fatal("short upload succeeded")
	}
	if len(fatal) != 1 {
		t.Errorf("device failure reached the fatal handler %d times, want 1", len(fatal))
	}
}

func TestRendererResourceErrorsNotFatal(t *testing.T) {
	called := false
	r, _ := newTestRenderer(t,
		WithFatalHandler(func(error) { called = true }),
		WithFatalOnResourceError(false))
	r.SelectTexture(0, r.NewTexture())
	if err := r.UploadTexture(nil, 4, 4); err == nil {
		t.Fatal("short upload succeeded")
	}
	if called {
		t.Error("fatal handler called with WithFatalOnResourceError(false)")
	}
}

func TestRendererCloseReleasesResources(t *testing.T) {
	rec := backend.NewRecorder(shader.TargetWGSL)
	r, err := NewRenderer(WithDevice(rec))
	if err != nil {
		t.Fatalf("NewRenderer() = %v", err)
	}
	if err := r.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	bindTexture(t, r, 0)
	r.CreateAndLoadNewShader(modeModulate)
	r.CreateAndLoadNewShader(modeShade)
	if rec.Live() != 4 {
		t.Fatalf("live resources = %d, want 4", rec.Live())
	}
	if err := r.StartFrame(); err != nil {
		t.Fatalf("StartFrame() = %v", err)
	}
	if err := r.DrawTriangles(make([]float32, 21), 21, 1); err != nil {
		t.Fatalf("DrawTriangles() = %v", err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatalf("EndFrame() = %v", err)
	}

	r.Close()
	if rec.Live() != 0 {
		t.Errorf("live resources after Close = %d, want 0", rec.Live())
	}
	if r.Tracker().Program() != nil || r.Tracker().Snapshot().Valid("program") {
		t.Error("tracker still refers to a destroyed program")
	}
	if rec.Calls["Close"] != 0 {
		t.Error("Close() closed a device it does not own")
	}
	if err := r.StartFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("StartFrame() after Close = %v, want ErrClosed", err)
	}
	r.Close()
}

func TestRendererStats(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.CreateAndLoadNewShader(modeShade)
	r.CreateAndLoadNewShader(modeShade)
	r.StartFrame()
	r.EndFrame()

	s := r.Stats()
	if s.Frames != 1 || s.Programs != 1 || s.Compiles != 1 || s.CacheHits != 1 || s.NoiseFrame != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if got := s.LogValue().Group(); len(got) != 6 {
		t.Errorf("LogValue() has %d attrs, want 6", len(got))
	}
}
