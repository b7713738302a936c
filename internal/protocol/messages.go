package protocol

import (
	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/model"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	AgentID         string      `json:"agent_id"`
	ModelParams     ModelParams `json:"model_params"`
}

type ModelParams struct {
	LatentDim     int   `json:"latent_dim"`
	VisualDim     int   `json:"visual_dim"`
	SchemaVersion int   `json:"schema_version"`
	WeightSeed    int64 `json:"weight_seed"`
}

// OBS (client -> server): one perception tick for one agent. Action is
// optional; when present the STATE reply carries a preview.
type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentID         string `json:"agent_id"`
	Tick            uint64 `json:"tick"`

	Tactical feature.TacticalFeatures  `json:"tactical"`
	Visual   []float64                 `json:"visual"`
	Self     feature.SelfState         `json:"self"`
	Action   *feature.ActionDescriptor `json:"action,omitempty"`
}

// STATE (server -> client)
type StateMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	AgentID         string       `json:"agent_id"`
	Tick            uint64       `json:"tick"`
	State           *model.State `json:"state"`
}

// PREDICT (client -> server): rollout request over the agent's current
// latent; nothing is committed.
type PredictMsg struct {
	Type            string                     `json:"type"`
	ProtocolVersion string                     `json:"protocol_version"`
	AgentID         string                     `json:"agent_id"`
	Actions         []feature.ActionDescriptor `json:"actions"`
}

// ROLLOUT (server -> client)
type RolloutMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	AgentID         string           `json:"agent_id"`
	Steps           []*model.Preview `json:"steps"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
