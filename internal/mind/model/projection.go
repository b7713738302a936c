package model

import "mentalworld.ai/internal/mind/vecmath"

// Projection is the per-modality two-layer head used throughout the graph:
// linear -> rms-norm -> tanh -> (dropout, training only) -> linear.
type Projection struct {
	In, Out     int
	L1, L2      *vecmath.Linear
	DropoutRate float64
}

func newProjection(out, in, hidden int, dropout, std float64, rng *vecmath.RNG) *Projection {
	return &Projection{
		In:          in,
		Out:         out,
		L1:          vecmath.NewLinear(hidden, in, std, rng),
		L2:          vecmath.NewLinear(out, hidden, std, rng),
		DropoutRate: dropout,
	}
}

// Apply runs the head. dropRNG is nil for inference, which makes the pass a
// pure function of the weights and input; training tooling passes its own
// stream to enable dropout.
func (p *Projection) Apply(x vecmath.Vector, dropRNG *vecmath.RNG) vecmath.Vector {
	h := vecmath.Tanh(vecmath.RMSNorm(p.L1.Apply(x)))
	if dropRNG != nil && p.DropoutRate > 0 {
		keep := 1.0 - p.DropoutRate
		for i := range h {
			if dropRNG.Float64() < p.DropoutRate {
				h[i] = 0
			} else {
				h[i] /= keep
			}
		}
	}
	return p.L2.Apply(h)
}
