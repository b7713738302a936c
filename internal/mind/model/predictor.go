package model

import (
	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/vecmath"
)

// Predictor estimates the latent that would follow from taking an action,
// without taking it. The action is projected into latent width and applied
// to z_t through a gated recurrent step of its own.
type Predictor struct {
	Cfg    Config
	Action *Projection
	Step   *vecmath.GRUCell
}

func newPredictor(cfg Config, rng *vecmath.RNG) *Predictor {
	d := cfg.LatentDim
	return &Predictor{
		Cfg:    cfg,
		Action: newProjection(d, feature.ActionWidth, cfg.HiddenScale*d, cfg.DropoutRate, cfg.InitStd, rng),
		Step:   vecmath.NewGRUCell(d, d, cfg.InitStd, rng),
	}
}

func (p *Predictor) Predict(z, action vecmath.Vector) (vecmath.Vector, error) {
	if len(z) != p.Cfg.LatentDim {
		return nil, &DimensionError{Input: "latent", Want: p.Cfg.LatentDim, Got: len(z)}
	}
	if len(action) != feature.ActionWidth {
		return nil, &DimensionError{Input: "action", Want: feature.ActionWidth, Got: len(action)}
	}
	return p.Step.Step(z, p.Action.Apply(action, nil)), nil
}
