package combiner

import (
	"math"
	"time"

	"github.com/gogpu/gpucontext"
)

// WindowManager is the window system side of the renderer: it owns the
// window and the swap chain and paces the main loop.
type WindowManager interface {
	Init() error
	// MainLoop calls iter once per frame until the window closes.
	MainLoop(iter func())
	// Dimensions returns the framebuffer size in pixels.
	Dimensions() (width, height int)
	HandleEvents()
	// StartFrame reports whether the frame should be rendered; false skips
	// it.
	StartFrame() bool
	SwapBuffersBegin()
	SwapBuffersEnd()
	// Time returns seconds since Init.
	Time() float64
}

// HeadlessWindow is a WindowManager without a window. Its size comes from
// a gpucontext.WindowProvider and its main loop runs a fixed number of
// frames.
type HeadlessWindow struct {
	wp     gpucontext.WindowProvider
	frames int
	now    func() time.Time

	start   time.Time
	swapped int
	skipped int
	stopped bool

	// SkipFrame, when set, is asked by StartFrame whether frame n is
	// skipped.
	SkipFrame func(n int) bool
}

// NewHeadlessWindow creates a window of width x height pixels whose main
// loop runs frames iterations.
func NewHeadlessWindow(width, height, frames int) *HeadlessWindow {
	return NewProviderWindow(gpucontext.NullWindowProvider{W: width, H: height}, frames)
}

// NewProviderWindow creates a headless window sized by wp, for hosts that
// own the real window.
func NewProviderWindow(wp gpucontext.WindowProvider, frames int) *HeadlessWindow {
	return &HeadlessWindow{wp: wp, frames: frames, now: time.Now}
}

// Init starts the clock and resets the frame counters.
func (w *HeadlessWindow) Init() error {
	w.start = w.now()
	w.swapped = 0
	w.skipped = 0
	w.stopped = false
	return nil
}

// MainLoop calls iter for the configured number of frames, or until Stop.
func (w *HeadlessWindow) MainLoop(iter func()) {
	for i := 0; i < w.frames && !w.stopped; i++ {
		iter()
	}
}

// Stop ends MainLoop after the current iteration.
func (w *HeadlessWindow) Stop() { w.stopped = true }

// Dimensions returns the provider size in physical pixels.
func (w *HeadlessWindow) Dimensions() (width, height int) {
	lw, lh := w.wp.Size()
	sf := w.wp.ScaleFactor()
	return int(math.Round(float64(lw) * sf)), int(math.Round(float64(lh) * sf))
}

// HandleEvents does nothing; a headless window has no event queue.
func (w *HeadlessWindow) HandleEvents() {}

// StartFrame reports whether the next frame is drawn. It returns false
// when SkipFrame asks to skip it.
func (w *HeadlessWindow) StartFrame() bool {
	n := w.swapped + w.skipped
	if w.SkipFrame != nil && w.SkipFrame(n) {
		w.skipped++
		return false
	}
	return true
}

// SwapBuffersBegin does nothing.
func (w *HeadlessWindow) SwapBuffersBegin() {}

// SwapBuffersEnd counts the frame as presented and asks the provider for
// a redraw.
func (w *HeadlessWindow) SwapBuffersEnd() {
	w.swapped++
	w.wp.RequestRedraw()
}

// Time returns the seconds since Init, or 0 before it.
func (w *HeadlessWindow) Time() float64 {
	if w.start.IsZero() {
		return 0
	}
	return w.now().Sub(w.start).Seconds()
}

// Swapped returns the number of presented frames.
func (w *HeadlessWindow) Swapped() int { return w.swapped }

// Skipped returns the number of frames StartFrame skipped.
func (w *HeadlessWindow) Skipped() int { return w.skipped }

// RunFrame renders one frame: it handles events, follows window size
// changes, and brackets frame between the Renderer and the swap chain.
// A skipped frame returns nil without rendering.
func RunFrame(wm WindowManager, r *Renderer, frame func(*Renderer) error) error {
	wm.HandleEvents()
	if w, h := wm.Dimensions(); w > 0 && h > 0 {
		if cw, ch := r.Size(); w != cw || h != ch {
			if err := r.OnResize(w, h); err != nil {
				return err
			}
		}
	}
	if !wm.StartFrame() {
		return nil
	}
	if err := r.StartFrame(); err != nil {
		return err
	}
	if frame != nil {
		if err := frame(r); err != nil {
			_ = r.EndFrame()
			return err
		}
	}
	if err := r.EndFrame(); err != nil {
		return err
	}
	wm.SwapBuffersBegin()
	r.FinishRender()
	wm.SwapBuffersEnd()
	return nil
}

// Run initializes wm and drives its main loop with RunFrame. The first
// error stops rendering and is returned.
func Run(wm WindowManager, r *Renderer, frame func(*Renderer) error) error {
	if err := wm.Init(); err != nil {
		return err
	}
	var err error
	wm.MainLoop(func() {
		if err != nil {
			return
		}
		err = RunFrame(wm, r, frame)
		if err != nil {
			if s, ok := wm.(interface{ Stop() }); ok {
				s.Stop()
			}
		}
	})
	return err
}
