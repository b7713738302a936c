// Package observer serves a read-only feed of committed mind updates for
// dashboards. It is loopback-only and never touches the model.
package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"mentalworld.ai/internal/mind/model"
	"mentalworld.ai/internal/mind/registry"
	"mentalworld.ai/internal/observerproto"
	"mentalworld.ai/internal/protocol"
)

type Server struct {
	reg     *registry.Registry
	modelID string
	log     *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	out chan []byte

	mu     sync.Mutex
	filter map[string]bool // nil means all agents
}

func NewServer(reg *registry.Registry, modelID string, logger *log.Logger) *Server {
	return &Server{
		reg:     reg,
		modelID: modelID,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*session{},
	}
}

// Publish fans a committed update out to every subscribed session. Slow
// sessions drop updates rather than stalling the caller.
func (s *Server) Publish(agentID string, tick uint64, st *model.State) {
	msg := observerproto.UpdateMsg{
		Type:            "UPDATE",
		ProtocolVersion: observerproto.Version,
		AgentID:         agentID,
		Tick:            tick,
		UpdateCount:     st.UpdateCount,
		World:           st.World,
		Self:            st.Self,
		Affect:          st.Affect,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if !sess.wants(agentID) {
			continue
		}
		select {
		case sess.out <- b:
		default:
			// Observer is behind; this update is lost to it.
		}
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		cfg := s.reg.Model().Cfg
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			ModelID:         s.modelID,
			ModelParams: protocol.ModelParams{
				LatentDim:     cfg.LatentDim,
				VisualDim:     cfg.VisualDim,
				SchemaVersion: model.SchemaVersion,
				WeightSeed:    s.reg.Model().Seed,
			},
		}
		for _, id := range s.reg.AgentIDs() {
			st, err := s.reg.State(id)
			if err != nil {
				continue
			}
			resp.Agents = append(resp.Agents, observerproto.AgentInfo{ID: id, UpdateCount: st.UpdateCount})
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad subscribe"), time.Now().Add(time.Second))
			return
		}
		if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		sess := &session{out: make(chan []byte, 256)}
		sess.setFilter(sub.AgentIDs)

		s.mu.Lock()
		s.sessions[sid] = sess
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sid)
			s.mu.Unlock()
		}()

		done := make(chan struct{})
		defer close(done)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-done:
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates to change the filter.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var sub observerproto.SubscribeMsg
			if err := json.Unmarshal(msg, &sub); err != nil {
				continue
			}
			if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
				continue
			}
			sess.setFilter(sub.AgentIDs)
		}

		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

func (sess *session) setFilter(ids []string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(ids) == 0 {
		sess.filter = nil
		return
	}
	sess.filter = make(map[string]bool, len(ids))
	for _, id := range ids {
		sess.filter[id] = true
	}
}

func (sess *session) wants(agentID string) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.filter == nil || sess.filter[agentID]
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
