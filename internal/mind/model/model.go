// Package model holds the latent-fusion network: a recurrent encoder over
// three observation modalities, an action-conditioned one-step predictor,
// and decoders back to interpretable world/self/affect estimates. All
// forward passes are inference-only and deterministic for a fixed seed.
package model

import (
	"time"

	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/vecmath"
)

type Model struct {
	Cfg  Config
	Enc  *Encoder
	Pred *Predictor
	Dec  *Decoder

	Seed int64

	now func() time.Time
}

// New builds a model with weights drawn deterministically from seed. Weights
// are read-only after construction and safe to share across goroutines.
func New(cfg Config, seed int64) *Model {
	cfg.normalize()
	rng := vecmath.NewRNG(seed)
	return &Model{
		Cfg:  cfg,
		Enc:  newEncoder(cfg, rng),
		Pred: newPredictor(cfg, rng),
		Dec:  newDecoder(cfg, rng),
		Seed: seed,
		now:  time.Now,
	}
}

// RestoreParts reassembles a model from checkpointed components. The caller
// is responsible for the parts having been built against the same Config.
func RestoreParts(cfg Config, seed int64, enc *Encoder, pred *Predictor, dec *Decoder) *Model {
	cfg.normalize()
	return &Model{Cfg: cfg, Enc: enc, Pred: pred, Dec: dec, Seed: seed, now: time.Now}
}

// Update is the single entry point for advancing an agent's state: pack the
// structured inputs, encode against the previous latent, decode, and bundle
// a fresh State. With a non-nil action it additionally attaches a Preview of
// the imagined next latent. On any error the previous state is untouched and
// nothing partial is returned.
func (m *Model) Update(prev *State, tac feature.TacticalFeatures, visual vecmath.Vector, self feature.SelfState, action *feature.ActionDescriptor) (*State, error) {
	tacVec, err := feature.PackTactical(tac)
	if err != nil {
		return nil, err
	}
	selfVec := feature.PackSelf(self)

	z, err := m.Enc.Encode(prev.Latent, tacVec, visual, selfVec)
	if err != nil {
		return nil, err
	}
	world, selfSlice, affect, err := m.Dec.Decode(z)
	if err != nil {
		return nil, err
	}

	next := &State{
		SchemaVersion: SchemaVersion,
		Latent:        z,
		World:         world,
		Self:          selfSlice,
		Affect:        affect,
		UpdateCount:   prev.UpdateCount + 1,
		UpdatedUnixMs: m.now().UnixMilli(),
	}

	if action != nil {
		pv, err := m.preview(z, *action)
		if err != nil {
			return nil, err
		}
		next.Preview = pv
	}
	return next, nil
}

func (m *Model) preview(z vecmath.Vector, action feature.ActionDescriptor) (*Preview, error) {
	actVec, err := feature.PackAction(action)
	if err != nil {
		return nil, err
	}
	zNext, err := m.Pred.Predict(z, actVec)
	if err != nil {
		return nil, err
	}
	world, selfSlice, affect, err := m.Dec.Decode(zNext)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Action: action,
		Latent: zNext,
		World:  world,
		Self:   selfSlice,
		Affect: affect,
	}, nil
}

// Rollout chains the predictor over an action sequence starting from z,
// decoding every imagined step. z itself is never modified; the caller can
// discard the whole trajectory.
func (m *Model) Rollout(z vecmath.Vector, actions []feature.ActionDescriptor) ([]*Preview, error) {
	steps := make([]*Preview, 0, len(actions))
	cur := z
	for _, action := range actions {
		pv, err := m.preview(cur, action)
		if err != nil {
			return nil, err
		}
		steps = append(steps, pv)
		cur = pv.Latent
	}
	return steps, nil
}
