package observerproto

import (
	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/protocol"
)

// Version is the observer protocol version (separate from the agent WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to update the agent filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Empty means all agents.
	AgentIDs []string `json:"agent_ids,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string               `json:"protocol_version"`
	ModelID         string               `json:"model_id"`
	ModelParams     protocol.ModelParams `json:"model_params"`
	Agents          []AgentInfo          `json:"agents"`
}

type AgentInfo struct {
	ID          string `json:"id"`
	UpdateCount uint64 `json:"update_count"`
}

// Server -> Client. One committed update. Latents are omitted on purpose;
// observers consume the decoded slices only.
type UpdateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	AgentID     string `json:"agent_id"`
	Tick        uint64 `json:"tick"`
	UpdateCount uint64 `json:"update_count"`

	World  feature.WorldSlice  `json:"world"`
	Self   feature.SelfSlice   `json:"self"`
	Affect feature.AffectSlice `json:"affect"`
}
