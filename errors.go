package combiner

import (
	"errors"
	"fmt"

	"github.com/gogpu/combiner/cc"
	"github.com/gogpu/combiner/shader"
)

// Caller contract violations. They are returned and logged at warn level.
var (
	// ErrNoProgram is returned by a draw with no program loaded.
	ErrNoProgram = errors.New("combiner: draw without a loaded program")

	// ErrNoTexture is returned when a program samples a slot with no
	// uploaded texture, or an upload has no selected texture.
	ErrNoTexture = errors.New("combiner: no texture for slot")

	// ErrBadSlot is returned for a texture slot other than 0 or 1, or an
	// unknown texture id.
	ErrBadSlot = errors.New("combiner: bad texture slot or id")

	// ErrShortVertexData is returned when the vertex data holds fewer floats
	// than the triangle count needs.
	ErrShortVertexData = errors.New("combiner: vertex data shorter than triangle count")

	// ErrNotInitialized is returned by frame operations before Init.
	ErrNotInitialized = errors.New("combiner: renderer not initialized")

	// ErrNoFrame is returned by draws and EndFrame outside a frame.
	ErrNoFrame = errors.New("combiner: no frame in progress")

	// ErrClosed is returned by operations on a closed Renderer.
	ErrClosed = errors.New("combiner: renderer closed")
)

// BuildError reports a program the device could not build. Builds are
// fatal: the error goes to the fatal handler and no fallback program is
// used.
type BuildError struct {
	Mode   cc.ModeWord
	Source *shader.Source
	// Log is the compiler output, empty when the device gave none.
	Log string
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("combiner: build program %v: %v", e.Mode, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
