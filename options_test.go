package combiner

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/combiner/shader"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.programCapacity != DefaultProgramCapacity {
		t.Errorf("programCapacity = %d, want %d", o.programCapacity, DefaultProgramCapacity)
	}
	if !o.fatalOnResource {
		t.Error("fatalOnResource should default to true")
	}
	if o.width != 640 || o.height != 480 {
		t.Errorf("size = %dx%d, want 640x480", o.width, o.height)
	}
	if o.device != nil || o.threePoint || o.fatal != nil || o.logger != nil {
		t.Error("unexpected non-zero default")
	}
}

func TestOptionsApply(t *testing.T) {
	rec := backend.NewRecorder(shader.TargetGLSL)
	o := defaultOptions()
	for _, opt := range []Option{
		WithDevice(rec),
		WithDeviceName("recorder"),
		WithProgramCapacity(8),
		WithProgramCapacity(0),
		WithThreePointFiltering(true),
		WithFatalOnResourceError(false),
		WithFramebufferSize(320, 240),
		WithFramebufferSize(-1, 10),
	} {
		opt(&o)
	}
	if o.device != rec || o.deviceName != "recorder" {
		t.Error("device options not applied")
	}
	if o.programCapacity != 8 {
		t.Errorf("programCapacity = %d, want 8 (zero ignored)", o.programCapacity)
	}
	if !o.threePoint || o.fatalOnResource {
		t.Error("flag options not applied")
	}
	if o.width != 320 || o.height != 240 {
		t.Errorf("size = %dx%d, want 320x240 (invalid size ignored)", o.width, o.height)
	}
}

func TestWithDeviceName(t *testing.T) {
	r, err := NewRenderer(WithDeviceName(backend.BackendRecorder), WithFramebufferSize(100, 50))
	if err != nil {
		t.Fatalf("NewRenderer() = %v", err)
	}
	defer r.Close()
	if err := r.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	rec, ok := r.Device().(*backend.Recorder)
	if !ok {
		t.Fatalf("device = %T, want *backend.Recorder", r.Device())
	}
	if w, h := rec.Size(); w != 100 || h != 50 {
		t.Errorf("device size = %dx%d, want 100x50", w, h)
	}
	r.Close()
	if rec.Calls["Close"] != 1 {
		t.Error("Close() did not close the device it created")
	}
}

func TestWithDeviceTarget(t *testing.T) {
	r, _ := newTestRenderer(t, WithDevice(backend.NewRecorder(shader.TargetGLSL)))
	if r.ZIsFrom0To1() {
		t.Error("GLSL device reports depth in [0, 1]")
	}
	p := r.CreateAndLoadNewShader(modeShade)
	if p.Source.Target != shader.TargetGLSL {
		t.Errorf("program target = %v, want glsl", p.Source.Target)
	}
}

func TestWithLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r, _ := newTestRenderer(t, WithLogger(l))
	if Logger() != l {
		t.Fatal("WithLogger() did not install the logger")
	}
	r.CreateAndLoadNewShader(modeShade)
	if !bytes.Contains(buf.Bytes(), []byte("program built")) {
		t.Errorf("log output missing program build: %s", buf.String())
	}
}
