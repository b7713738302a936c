// Package ws exposes the model over a websocket inference protocol: one
// connection drives one agent. Requests on a connection are handled in
// order, which also satisfies the per-agent sequential-update requirement
// for the agent the connection owns.
package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/model"
	"mentalworld.ai/internal/mind/registry"
	"mentalworld.ai/internal/protocol"
)

// UpdateSink receives every committed state (update log, sqlite index).
type UpdateSink interface {
	CommittedUpdate(agentID string, tick uint64, st *model.State)
}

type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	reg  *registry.Registry
	log  *log.Logger
	cfg  Config
	sink UpdateSink

	draining atomic.Bool
	upgrader websocket.Upgrader
}

// Drain puts the server into shutdown mode: new connections are refused and
// in-flight connections get an E_UNAVAILABLE error on their next request.
func (s *Server) Drain() {
	s.draining.Store(true)
}

func NewServer(reg *registry.Registry, cfg Config, sink UpdateSink, logger *log.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Server{
		reg:  reg,
		log:  logger,
		cfg:  cfg,
		sink: sink,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if s.draining.Load() {
			http.Error(rw, "shutting down", http.StatusServiceUnavailable)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		agentID := s.handshake(conn)
		if agentID == "" {
			return
		}
		defer s.reg.Leave(agentID)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if s.draining.Load() {
				s.writeError(conn, protocol.ErrUnavailable, "shutting down")
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.writeError(conn, protocol.ErrProtoBadRequest, "unparseable message")
				continue
			}
			if base.ProtocolVersion != protocol.Version {
				s.writeError(conn, protocol.ErrProtoBadRequest, "bad protocol_version")
				continue
			}

			switch base.Type {
			case protocol.TypeObs:
				s.handleObs(conn, agentID, msg)
			case protocol.TypePredict:
				s.handlePredict(conn, agentID, msg)
			default:
				s.writeError(conn, protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (agentID string) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return ""
	}
	if hello.AgentName == "" {
		hello.AgentName = "agent"
	}

	id := s.reg.Join(hello.AgentName)
	m := s.reg.Model()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		AgentID:         id,
		ModelParams: protocol.ModelParams{
			LatentDim:     m.Cfg.LatentDim,
			VisualDim:     m.Cfg.VisualDim,
			SchemaVersion: model.SchemaVersion,
			WeightSeed:    m.Seed,
		},
	}
	if !s.writeJSON(conn, welcome) {
		s.reg.Leave(id)
		return ""
	}
	s.log.Printf("agent %s joined (%s)", id, hello.AgentName)
	return id
}

func (s *Server) handleObs(conn *websocket.Conn, agentID string, msg []byte) {
	var obs protocol.ObsMsg
	if err := json.Unmarshal(msg, &obs); err != nil {
		s.writeError(conn, protocol.ErrProtoBadRequest, "bad OBS payload")
		return
	}
	if obs.AgentID != "" && obs.AgentID != agentID {
		s.writeError(conn, protocol.ErrProtoBadRequest, "agent_id does not match connection")
		return
	}

	st, err := s.reg.Update(agentID, obs.Tactical, obs.Visual, obs.Self, obs.Action)
	if err != nil {
		s.writeModelError(conn, err)
		return
	}
	if s.sink != nil {
		s.sink.CommittedUpdate(agentID, obs.Tick, st)
	}
	s.writeJSON(conn, protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		AgentID:         agentID,
		Tick:            obs.Tick,
		State:           st,
	})
}

func (s *Server) handlePredict(conn *websocket.Conn, agentID string, msg []byte) {
	var pred protocol.PredictMsg
	if err := json.Unmarshal(msg, &pred); err != nil {
		s.writeError(conn, protocol.ErrProtoBadRequest, "bad PREDICT payload")
		return
	}
	if len(pred.Actions) == 0 {
		s.writeError(conn, protocol.ErrProtoBadRequest, "empty action sequence")
		return
	}

	steps, err := s.reg.Rollout(agentID, pred.Actions)
	if err != nil {
		s.writeModelError(conn, err)
		return
	}
	s.writeJSON(conn, protocol.RolloutMsg{
		Type:            protocol.TypeRollout,
		ProtocolVersion: protocol.Version,
		AgentID:         agentID,
		Steps:           steps,
	})
}

// writeModelError maps library errors onto protocol codes. Dimension and
// shape errors are the caller's fault (4xx-equivalent) and are never retried
// here.
func (s *Server) writeModelError(conn *websocket.Conn, err error) {
	var dimErr *model.DimensionError
	var shapeErr *feature.ShapeError
	switch {
	case errors.As(err, &dimErr):
		s.writeError(conn, protocol.ErrDimMismatch, err.Error())
	case errors.As(err, &shapeErr):
		s.writeError(conn, protocol.ErrBadShape, err.Error())
	case errors.Is(err, registry.ErrUnknownAgent):
		s.writeError(conn, protocol.ErrAgentNotFound, err.Error())
	default:
		s.log.Printf("update error: %v", err)
		s.writeError(conn, protocol.ErrInternal, "internal error")
	}
}

func (s *Server) writeError(conn *websocket.Conn, code, message string) {
	s.writeJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return false
	}
	return true
}
