package combiner

import (
	"errors"
	"log/slog"

	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/combiner/cc"
	"github.com/gogpu/combiner/shader"
)

// DefaultProgramCapacity is the number of programs a cache chunk holds.
const DefaultProgramCapacity = 64

// ProgramCache maps mode words to compiled programs.
//
// Programs live in fixed-capacity chunks. A full cache grows by adding a
// chunk, so a *Program handed out stays valid until Close.
//
// ProgramCache is not safe for concurrent use.
type ProgramCache struct {
	dev      backend.Device
	opts     shader.Options
	capacity int
	fatal    func(error)

	chunks   [][]Program
	compiles uint64
	hits     uint64
}

// NewProgramCache creates a cache that compiles programs on dev. A
// capacity of zero or less uses DefaultProgramCapacity. fatal receives
// build failures; nil panics with the error.
func NewProgramCache(dev backend.Device, capacity int, opts shader.Options, fatal func(error)) *ProgramCache {
	if capacity <= 0 {
		capacity = DefaultProgramCapacity
	}
	return &ProgramCache{
		dev:      dev,
		opts:     opts,
		capacity: capacity,
		fatal:    fatal,
	}
}

// Lookup returns the program for m, or nil if none was built.
func (c *ProgramCache) Lookup(m cc.ModeWord) *Program {
	for i := range c.chunks {
		chunk := c.chunks[i]
		for j := range chunk {
			if chunk[j].Mode == m {
				return &chunk[j]
			}
		}
	}
	return nil
}

// GetOrBuild returns the program for m, building it on a miss. A build
// failure goes to the fatal handler; if that returns, GetOrBuild returns
// nil.
func (c *ProgramCache) GetOrBuild(m cc.ModeWord) *Program {
	if p := c.Lookup(m); p != nil {
		c.hits++
		return p
	}

	comb := cc.Decode(m)
	src, err := shader.Generate(comb, c.dev.Target(), c.opts)
	if err != nil {
		c.fail(&BuildError{Mode: m, Err: err})
		return nil
	}

	p := c.alloc()
	p.init(comb, src)
	res, err := c.dev.CompileProgram(src, p.Blend)
	if err != nil {
		c.release()
		be := &BuildError{Mode: m, Source: src, Err: err}
		var ce *backend.CompileError
		if errors.As(err, &ce) {
			be.Log = ce.Log
		}
		c.fail(be)
		return nil
	}
	p.resource = res
	c.compiles++

	Logger().Info("combiner: program built",
		"mode", m,
		"inputs", p.NumInputs,
		"stride", p.NumFloats,
		"alpha", p.Alpha,
		"textures", p.UsedTextures)
	return p
}

// alloc appends a zero program, adding a chunk when the last one is full.
func (c *ProgramCache) alloc() *Program {
	n := len(c.chunks)
	if n == 0 || len(c.chunks[n-1]) == cap(c.chunks[n-1]) {
		c.chunks = append(c.chunks, make([]Program, 0, c.capacity))
		n++
	}
	last := c.chunks[n-1]
	c.chunks[n-1] = append(last, Program{})
	return &c.chunks[n-1][len(last)]
}

// release drops the program alloc returned last.
func (c *ProgramCache) release() {
	n := len(c.chunks)
	last := c.chunks[n-1]
	last[len(last)-1] = Program{}
	c.chunks[n-1] = last[:len(last)-1]
}

func (c *ProgramCache) fail(be *BuildError) {
	attrs := []any{"mode", be.Mode, "err", be.Err}
	if be.Source != nil {
		attrs = append(attrs, "vertex", be.Source.Vertex, "fragment", be.Source.Fragment)
	}
	if be.Log != "" {
		attrs = append(attrs, "log", be.Log)
	}
	Logger().Error("combiner: program build failed", attrs...)

	if c.fatal == nil {
		panic(be)
	}
	c.fatal(be)
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	n := 0
	for _, chunk := range c.chunks {
		n += len(chunk)
	}
	return n
}

// Compiles returns the number of programs compiled since creation.
func (c *ProgramCache) Compiles() uint64 { return c.compiles }

// Hits returns the number of GetOrBuild calls served from the cache.
func (c *ProgramCache) Hits() uint64 { return c.hits }

// Each calls fn for every cached program in build order.
func (c *ProgramCache) Each(fn func(*Program)) {
	for i := range c.chunks {
		for j := range c.chunks[i] {
			fn(&c.chunks[i][j])
		}
	}
}

// Close destroys every program resource and empties the cache.
func (c *ProgramCache) Close() {
	c.Each(func(p *Program) {
		if p.resource != nil {
			c.dev.Destroy(p.resource)
			p.resource = nil
		}
	})
	c.chunks = nil
}

// LogValue implements slog.LogValuer.
func (c *ProgramCache) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("programs", c.Len()),
		slog.Uint64("compiles", c.compiles),
		slog.Uint64("hits", c.hits),
	)
}
