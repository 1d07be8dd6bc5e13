package combiner

import (
	"github.com/gogpu/combiner/backend"
	"github.com/gogpu/combiner/cc"
	"github.com/gogpu/combiner/shader"
	"github.com/gogpu/gputypes"
)

// Program is a combiner mode compiled for the device: the decoded
// combiner, its generated source, vertex layout and blend state, and the
// device resource. Programs are created by the ProgramCache on a miss and
// never change afterwards.
type Program struct {
	Mode     cc.ModeWord
	Combiner cc.Combiner

	// NumInputs is the number of interpolated inputs.
	NumInputs int
	// NumFloats is the vertex stride in floats.
	NumFloats    int
	UsedTextures [2]bool
	Alpha        bool

	Source *shader.Source
	Layout shader.Layout

	// Blend is nil for opaque programs.
	Blend *gputypes.BlendState

	resource backend.Resource
}

// Resource returns the device resource of the program.
func (p *Program) Resource() backend.Resource { return p.resource }

// BlendFor returns the blend state a combiner implies: source alpha over
// destination for color, source alpha kept for alpha. Opaque combiners get
// nil.
func BlendFor(c cc.Combiner) *gputypes.BlendState {
	if !c.Alpha {
		return nil
	}
	return &gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorZero,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

func (p *Program) init(c cc.Combiner, src *shader.Source) {
	p.Mode = c.Mode
	p.Combiner = c
	p.NumInputs = c.NumInputs
	p.UsedTextures = c.UsedTextures
	p.Alpha = c.Alpha
	p.Source = src
	p.Layout = src.Layout
	p.NumFloats = src.Layout.StrideFloats()
	p.Blend = BlendFor(c)
}
