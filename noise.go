package combiner

import "math"

// NoiseFrameWrap is the last noise frame value. The counter returns to 0
// on the increment after it.
const NoiseFrameWrap = 150

// NoiseHeight is the N64 scanline count the noise pattern is quantized to.
const NoiseHeight = 240

// NoiseCounter is the frame counter seeding the noise dither.
type NoiseCounter struct {
	frame uint32
}

// Advance steps the counter and returns the new frame value.
func (n *NoiseCounter) Advance() uint32 {
	n.frame++
	if n.frame > NoiseFrameWrap {
		n.frame = 0
	}
	return n.frame
}

// Frame returns the current frame value.
func (n *NoiseCounter) Frame() uint32 { return n.frame }

// NoiseScale maps window pixels of a framebuffer height to N64 scanlines.
func NoiseScale(height int) float32 {
	if height <= 0 {
		return 1
	}
	return NoiseHeight / float32(height)
}

// NoiseMask is the CPU form of the fragment noise: the 0 or 1 the output
// alpha of pixel (x, y) is multiplied by in the given frame.
func NoiseMask(x, y int, frame uint32, scale float32) float32 {
	qx := float32(math.Floor(float64((float32(x) + 0.5) * scale)))
	qy := float32(math.Floor(float64((float32(y) + 0.5) * scale)))
	r := qx*12.9898 + qy*78.233 + float32(frame)*37.719
	v := float64(float32(math.Sin(float64(r))) * 143758.5453)
	v -= math.Floor(v)
	return float32(math.Floor(v + 0.5))
}
