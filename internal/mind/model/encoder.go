package model

import (
	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/vecmath"
)

// Encoder fuses the three modality vectors and the previous latent into the
// next latent. Each modality gets its own projection into latent width; the
// projected vectors are concatenated and folded into z_prev by one gated
// recurrent step, so the latent carries memory without unbounded growth.
type Encoder struct {
	Cfg  Config
	Tac  *Projection
	Vis  *Projection
	Self *Projection
	Fuse *vecmath.GRUCell
}

func newEncoder(cfg Config, rng *vecmath.RNG) *Encoder {
	d := cfg.LatentDim
	return &Encoder{
		Cfg:  cfg,
		Tac:  newProjection(d, feature.TacticalWidth, cfg.HiddenScale*d, cfg.DropoutRate, cfg.InitStd, rng),
		Vis:  newProjection(d, cfg.VisualDim, cfg.HiddenScale*d, cfg.DropoutRate, cfg.InitStd, rng),
		Self: newProjection(d, feature.SelfWidth, cfg.HiddenScale*d, cfg.DropoutRate, cfg.InitStd, rng),
		Fuse: vecmath.NewGRUCell(d, 3*d, cfg.InitStd, rng),
	}
}

// Encode is a pure function of the weights and inputs; given fixed weights
// the same inputs always produce the bit-identical latent.
func (e *Encoder) Encode(zPrev, tactical, visual, selfVec vecmath.Vector) (vecmath.Vector, error) {
	if len(zPrev) != e.Cfg.LatentDim {
		return nil, &DimensionError{Input: "latent", Want: e.Cfg.LatentDim, Got: len(zPrev)}
	}
	if len(tactical) != feature.TacticalWidth {
		return nil, &DimensionError{Input: "tactical", Want: feature.TacticalWidth, Got: len(tactical)}
	}
	if len(visual) != e.Cfg.VisualDim {
		return nil, &DimensionError{Input: "visual", Want: e.Cfg.VisualDim, Got: len(visual)}
	}
	if len(selfVec) != feature.SelfWidth {
		return nil, &DimensionError{Input: "self", Want: feature.SelfWidth, Got: len(selfVec)}
	}

	fused := vecmath.Concat(
		e.Tac.Apply(tactical, nil),
		e.Vis.Apply(visual, nil),
		e.Self.Apply(selfVec, nil),
	)
	return e.Fuse.Step(zPrev, fused), nil
}
