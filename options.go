package combiner

import (
	"log/slog"

	"github.com/gogpu/combiner/backend"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	// Default device from the backend registry
//	r, err := combiner.NewRenderer()
//
//	// Explicit device (dependency injection)
//	r, err := combiner.NewRenderer(combiner.WithDevice(dev))
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	device          backend.Device
	deviceName      string
	programCapacity int
	threePoint      bool
	fatal           func(error)
	logger          *slog.Logger
	fatalOnResource bool
	width, height   int
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		programCapacity: DefaultProgramCapacity,
		fatalOnResource: true,
		width:           640,
		height:          480,
	}
}

// WithDevice sets the device the Renderer draws on. It takes precedence
// over WithDeviceName.
func WithDevice(d backend.Device) Option {
	return func(o *options) {
		o.device = d
	}
}

// WithDeviceName picks a registered backend by name.
//
// Example:
//
//	import _ "github.com/gogpu/combiner/backend/wgpu"
//
//	r, err := combiner.NewRenderer(combiner.WithDeviceName("wgpu"))
func WithDeviceName(name string) Option {
	return func(o *options) {
		o.deviceName = name
	}
}

// WithProgramCapacity sets the number of programs per program cache chunk.
func WithProgramCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.programCapacity = n
		}
	}
}

// WithThreePointFiltering enables N64 three-point texture filtering in
// the fragment program. Samplers become nearest and the linear flag of
// each texture is passed as a uniform.
func WithThreePointFiltering(enabled bool) Option {
	return func(o *options) {
		o.threePoint = enabled
	}
}

// WithFatalHandler sets the function receiving fatal errors: program
// builds, and resource failures unless WithFatalOnResourceError(false).
// The default panics.
func WithFatalHandler(fn func(error)) Option {
	return func(o *options) {
		o.fatal = fn
	}
}

// WithFatalOnResourceError controls whether texture and sampler creation
// failures also go to the fatal handler. They are returned either way.
func WithFatalOnResourceError(enabled bool) Option {
	return func(o *options) {
		o.fatalOnResource = enabled
	}
}

// WithLogger calls SetLogger with l when the Renderer is created.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFramebufferSize sets the framebuffer size Init uses. The default is
// 640x480.
func WithFramebufferSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}
