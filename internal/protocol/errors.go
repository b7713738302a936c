package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Model input contract.
	ErrDimMismatch = "E_DIM_MISMATCH"
	ErrBadShape    = "E_BAD_SHAPE"

	// Agent routing/state. ErrAgentBusy is reserved for rejecting a second
	// driver on an already-driven agent; no current path emits it because
	// every connection owns a freshly joined agent.
	ErrAgentNotFound = "E_AGENT_NOT_FOUND"
	ErrAgentBusy     = "E_AGENT_BUSY"

	// Service layer.
	ErrUnavailable = "E_UNAVAILABLE"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrDimMismatch:     {},
	ErrBadShape:        {},
	ErrAgentNotFound:   {},
	ErrAgentBusy:       {},
	ErrUnavailable:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
