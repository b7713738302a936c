package model

import (
	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/vecmath"
)

// SchemaVersion tags serialized states. Loads reject any other value rather
// than misinterpreting an old latent layout.
const SchemaVersion = 1

// State is one immutable snapshot of an agent's mental state. Update never
// mutates a State in place; it returns a fresh one, so the slices a State
// carries are always the ones decoded from its own latent.
type State struct {
	SchemaVersion int                 `json:"schema_version"`
	Latent        vecmath.Vector      `json:"latent"`
	World         feature.WorldSlice  `json:"world"`
	Self          feature.SelfSlice   `json:"self"`
	Affect        feature.AffectSlice `json:"affect"`
	UpdateCount   uint64              `json:"update_count"`
	UpdatedUnixMs int64               `json:"updated_unix_ms"`

	// Preview is the imagined consequence of the action passed to Update,
	// when one was. It never replaces the committed latent; acting on it is
	// the downstream scorer's decision. Previews are transient and are not
	// carried into persistence snapshots.
	Preview *Preview `json:"preview,omitempty"`
}

// Preview pairs an action with its predicted latent and decoded slices.
type Preview struct {
	Action feature.ActionDescriptor `json:"action"`
	Latent vecmath.Vector           `json:"latent"`
	World  feature.WorldSlice       `json:"world"`
	Self   feature.SelfSlice        `json:"self"`
	Affect feature.AffectSlice      `json:"affect"`
}

// NewState returns the uninitialized state: zero latent, zero counter.
func NewState(latentDim int) *State {
	return &State{
		SchemaVersion: SchemaVersion,
		Latent:        vecmath.Zeros(latentDim),
	}
}
