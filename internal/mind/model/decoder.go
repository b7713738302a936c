package model

import (
	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/vecmath"
)

// Decoder maps a latent (actual or predicted) to the three interpretable
// slices through independent heads. Decoding is read-only; the same latent
// always decodes to the same slices.
//
// The affect head's raw outputs are squashed through a logistic so the four
// affect values are always in 0..1; the world and self heads emit raw
// estimates.
type Decoder struct {
	Cfg    Config
	World  *Projection
	Self   *Projection
	Affect *Projection
}

func newDecoder(cfg Config, rng *vecmath.RNG) *Decoder {
	d := cfg.LatentDim
	return &Decoder{
		Cfg:    cfg,
		World:  newProjection(feature.TacticalWidth, d, cfg.HiddenScale*feature.TacticalWidth, cfg.DropoutRate, cfg.InitStd, rng),
		Self:   newProjection(feature.SelfWidth, d, cfg.HiddenScale*feature.SelfWidth, cfg.DropoutRate, cfg.InitStd, rng),
		Affect: newProjection(feature.AffectWidth, d, cfg.HiddenScale*feature.AffectWidth, cfg.DropoutRate, cfg.InitStd, rng),
	}
}

func (d *Decoder) Decode(z vecmath.Vector) (feature.WorldSlice, feature.SelfSlice, feature.AffectSlice, error) {
	if len(z) != d.Cfg.LatentDim {
		return feature.WorldSlice{}, feature.SelfSlice{}, feature.AffectSlice{},
			&DimensionError{Input: "latent", Want: d.Cfg.LatentDim, Got: len(z)}
	}
	world := feature.UnpackWorld(d.World.Apply(z, nil))
	selfSlice := feature.UnpackSelf(d.Self.Apply(z, nil))
	affect := feature.UnpackAffect(vecmath.Sigmoid(d.Affect.Apply(z, nil)))
	return world, selfSlice, affect, nil
}
