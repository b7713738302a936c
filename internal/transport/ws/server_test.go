package ws

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/model"
	"mentalworld.ai/internal/mind/registry"
	"mentalworld.ai/internal/protocol"
)

type captureSink struct {
	mu   sync.Mutex
	rows []string
}

func (c *captureSink) CommittedUpdate(agentID string, tick uint64, st *model.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, agentID)
}

func newTestServer(t *testing.T) (*httptest.Server, *captureSink) {
	t.Helper()
	cfg := model.Config{LatentDim: 8, VisualDim: 4, HiddenScale: 2, InitStd: 0.05}
	reg := registry.New(model.New(cfg, 7))
	sink := &captureSink{}
	logger := log.New(os.Stderr, "[ws-test] ", log.LstdFlags)
	srv := NewServer(reg, Config{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}, sink, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, sink
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readMsg(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func handshake(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       "companion",
	})
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readMsg(t, conn), &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %s", welcome.Type)
	}
	return welcome
}

func TestHandshake_Welcome(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	welcome := handshake(t, conn)
	if welcome.AgentID != "A1" {
		t.Fatalf("agent id: %s", welcome.AgentID)
	}
	if welcome.ModelParams.LatentDim != 8 || welcome.ModelParams.VisualDim != 4 {
		t.Fatalf("model params: %+v", welcome.ModelParams)
	}
	if welcome.SessionID == "" {
		t.Fatalf("missing session id")
	}
}

func TestObs_ReturnsState(t *testing.T) {
	ts, sink := newTestServer(t)
	conn := dial(t, ts)
	welcome := handshake(t, conn)

	sendJSON(t, conn, protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		AgentID:         welcome.AgentID,
		Tick:            1,
		Tactical:        feature.TacticalFeatures{ThreatLevel: 0.5, NumEnemiesTotal: 1},
		Visual:          []float64{0.1, 0.2, 0.3, 0.4},
		Self:            feature.SelfState{Health: 0.9},
		Action:          &feature.ActionDescriptor{Kind: feature.ActionSneak},
	})

	var state protocol.StateMsg
	if err := json.Unmarshal(readMsg(t, conn), &state); err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Type != protocol.TypeState {
		t.Fatalf("expected STATE, got %s", state.Type)
	}
	if state.State.UpdateCount != 1 {
		t.Fatalf("update count: %d", state.State.UpdateCount)
	}
	if state.State.Preview == nil {
		t.Fatalf("expected preview for action-carrying OBS")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.rows) != 1 || sink.rows[0] != welcome.AgentID {
		t.Fatalf("sink rows: %v", sink.rows)
	}
}

func TestObs_DimensionMismatchError(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)
	handshake(t, conn)

	sendJSON(t, conn, protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            1,
		Visual:          []float64{0.1, 0.2}, // model wants 4
	})

	var errMsg protocol.ErrorMsg
	if err := json.Unmarshal(readMsg(t, conn), &errMsg); err != nil {
		t.Fatalf("error msg: %v", err)
	}
	if errMsg.Code != protocol.ErrDimMismatch {
		t.Fatalf("code: %s", errMsg.Code)
	}
	if !strings.Contains(errMsg.Message, "4") || !strings.Contains(errMsg.Message, "2") {
		t.Fatalf("message must name both widths: %q", errMsg.Message)
	}
}

func TestPredict_ReturnsRollout(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)
	welcome := handshake(t, conn)

	sendJSON(t, conn, protocol.PredictMsg{
		Type:            protocol.TypePredict,
		ProtocolVersion: protocol.Version,
		AgentID:         welcome.AgentID,
		Actions: []feature.ActionDescriptor{
			{Kind: feature.ActionMove, Direction: []float64{1, 0}},
			{Kind: feature.ActionAttack, Magnitude: 0.8},
		},
	})

	var rollout protocol.RolloutMsg
	if err := json.Unmarshal(readMsg(t, conn), &rollout); err != nil {
		t.Fatalf("rollout: %v", err)
	}
	if rollout.Type != protocol.TypeRollout {
		t.Fatalf("expected ROLLOUT, got %s", rollout.Type)
	}
	if len(rollout.Steps) != 2 {
		t.Fatalf("steps: %d", len(rollout.Steps))
	}
}

func TestBadProtocolVersion_Rejected(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)
	handshake(t, conn)

	sendJSON(t, conn, protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: "0.1",
		Visual:          []float64{0, 0, 0, 0},
	})
	var errMsg protocol.ErrorMsg
	if err := json.Unmarshal(readMsg(t, conn), &errMsg); err != nil {
		t.Fatalf("error msg: %v", err)
	}
	if errMsg.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("code: %s", errMsg.Code)
	}
}

func TestDrain_RefusesFurtherRequests(t *testing.T) {
	cfg := model.Config{LatentDim: 8, VisualDim: 4, HiddenScale: 2, InitStd: 0.05}
	reg := registry.New(model.New(cfg, 7))
	logger := log.New(os.Stderr, "[ws-test] ", log.LstdFlags)
	srv := NewServer(reg, Config{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}, nil, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	conn := dial(t, ts)
	handshake(t, conn)

	srv.Drain()
	sendJSON(t, conn, protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            1,
		Visual:          []float64{0, 0, 0, 0},
	})
	var errMsg protocol.ErrorMsg
	if err := json.Unmarshal(readMsg(t, conn), &errMsg); err != nil {
		t.Fatalf("error msg: %v", err)
	}
	if errMsg.Code != protocol.ErrUnavailable {
		t.Fatalf("code: %s", errMsg.Code)
	}

	// Connection is closed after the refusal and new upgrades are denied.
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected closed connection after drain refusal")
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatalf("expected dial to fail while draining")
	}
}
