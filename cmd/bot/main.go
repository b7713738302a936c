package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/protocol"
)

// Drives the service with a synthetic encounter: calm patrol, an enemy
// appears, combat, then a retreat. Useful for watching affect trajectories
// end to end without a game attached.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "agent name")
		tickMs = flag.Int("tick_ms", 200, "milliseconds between observation ticks")
		ticks  = flag.Uint64("ticks", 0, "stop after this many ticks (0 = run until interrupted)")
		seed   = flag.Int64("seed", 42, "scenario noise seed")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		logger.Fatalf("bad WELCOME: %s", msg)
	}
	logger.Printf("WELCOME agent_id=%s latent=%d visual=%d seed=%d",
		welcome.AgentID, welcome.ModelParams.LatentDim, welcome.ModelParams.VisualDim, welcome.ModelParams.WeightSeed)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	rng := rand.New(rand.NewSource(*seed))
	ticker := time.NewTicker(time.Duration(*tickMs) * time.Millisecond)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		tick++
		if *ticks != 0 && tick > *ticks {
			return
		}

		obs := scenarioObs(welcome.AgentID, tick, welcome.ModelParams.VisualDim, rng)
		if err := conn.WriteJSON(obs); err != nil {
			logger.Fatalf("send OBS: %v", err)
		}

		_, reply, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(reply)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(reply, &st); err != nil || st.State == nil {
				continue
			}
			af := st.State.Affect
			logger.Printf("tick=%d threat=%.3f curiosity=%.3f value=%.3f surprise=%.3f",
				tick, af.Threat, af.Curiosity, af.Value, af.Surprise)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(reply, &e)
			logger.Fatalf("server error: %s %s", e.Code, e.Message)
		}

		// Every 50 ticks, ask what fleeing versus fighting would feel like.
		if tick%50 == 0 {
			predict := protocol.PredictMsg{
				Type:            protocol.TypePredict,
				ProtocolVersion: protocol.Version,
				AgentID:         welcome.AgentID,
				Actions: []feature.ActionDescriptor{
					{Kind: feature.ActionFlee, DurationS: 2, Magnitude: 1},
					{Kind: feature.ActionAttack, DurationS: 1, Magnitude: 0.8},
				},
			}
			if err := conn.WriteJSON(predict); err != nil {
				logger.Fatalf("send PREDICT: %v", err)
			}
			_, reply, err := conn.ReadMessage()
			if err != nil {
				logger.Fatalf("read ROLLOUT: %v", err)
			}
			var ro protocol.RolloutMsg
			if err := json.Unmarshal(reply, &ro); err == nil && len(ro.Steps) > 0 {
				last := ro.Steps[len(ro.Steps)-1]
				logger.Printf("rollout: after flee+attack threat=%.3f value=%.3f",
					last.Affect.Threat, last.Affect.Value)
			}
		}
	}
}

// scenarioObs walks one agent through a 400-tick loop: quiet, contact,
// combat, retreat.
func scenarioObs(agentID string, tick uint64, visualDim int, rng *rand.Rand) protocol.ObsMsg {
	phase := tick % 400

	visual := make([]float64, visualDim)
	for i := range visual {
		visual[i] = rng.NormFloat64() * 0.1
	}

	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		AgentID:         agentID,
		Tick:            tick,
		Visual:          visual,
		Self: feature.SelfState{
			Health:  1.0,
			Stamina: 0.9,
			Magicka: 0.8,
		},
		Tactical: feature.TacticalFeatures{
			StealthSafety: 0.9,
		},
	}

	switch {
	case phase < 100: // quiet patrol
		obs.Action = &feature.ActionDescriptor{Kind: feature.ActionMove, DurationS: 1, Magnitude: 0.5}

	case phase < 200: // contact: one enemy in sight, threat ramps
		ramp := float64(phase-100) / 100
		obs.Tactical.ThreatLevel = 0.3 + 0.4*ramp
		obs.Tactical.NumEnemiesTotal = 1
		obs.Tactical.NumEnemiesInLOS = 1
		obs.Tactical.NearestEnemy = &feature.NearestEnemy{
			Distance:   40 - 30*ramp,
			BearingDeg: math.Mod(float64(tick)*3, 360),
			Health:     1.0,
		}
		obs.Tactical.StealthSafety = 0.5
		obs.Action = &feature.ActionDescriptor{Kind: feature.ActionSneak, DurationS: 1, Magnitude: 0.7}

	case phase < 300: // combat
		obs.Tactical.ThreatLevel = 0.85
		obs.Tactical.NumEnemiesTotal = 2
		obs.Tactical.NumEnemiesInLOS = 2
		obs.Tactical.NearestEnemy = &feature.NearestEnemy{
			Distance:   5 + rng.Float64()*3,
			BearingDeg: rng.Float64() * 360,
			Health:     1 - float64(phase-200)/120,
		}
		obs.Tactical.BestCoverDistance = 12
		obs.Self.Health = 1 - 0.4*float64(phase-200)/100
		obs.Self.InCombat = true
		obs.Action = &feature.ActionDescriptor{Kind: feature.ActionAttack, DurationS: 0.8, Magnitude: 1}

	default: // retreat and recover
		obs.Tactical.ThreatLevel = 0.4 * (1 - float64(phase-300)/100)
		obs.Tactical.EscapeVector = []float64{0.7, -0.7}
		obs.Self.Health = 0.6
		obs.Self.Stamina = 0.4
		obs.Action = &feature.ActionDescriptor{
			Kind: feature.ActionFlee, DurationS: 1.5, Magnitude: 1,
			Direction: []float64{0.7, -0.7},
		}
	}
	return obs
}
