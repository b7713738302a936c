package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"mentalworld.ai/internal/mind/model"
	"mentalworld.ai/internal/protocol"
	"mentalworld.ai/internal/tuning"
)

// replayObservations feeds a recorded OBS stream through a freshly seeded
// model and prints the decoded trajectory. Determinism of the forward pass
// means the printed affect matches what the live service produced, provided
// the config and seed match.
func replayObservations(path, configPath, onlyAgent string) error {
	tune, err := tuning.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("load config: %w", err)
		}
		tune = tuning.Defaults()
	}
	m := model.New(tune.ModelConfig(), tune.Model.WeightSeed)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	states := make(map[string]*model.State)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var obs protocol.ObsMsg
		if err := json.Unmarshal(raw, &obs); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if obs.Type != "" && obs.Type != protocol.TypeObs {
			continue
		}
		id := obs.AgentID
		if id == "" {
			id = "agent-0"
		}
		if onlyAgent != "" && id != onlyAgent {
			continue
		}
		prev, ok := states[id]
		if !ok {
			prev = model.NewState(m.Cfg.LatentDim)
		}
		st, err := m.Update(prev, obs.Tactical, obs.Visual, obs.Self, obs.Action)
		if err != nil {
			return fmt.Errorf("line %d agent %s: %w", line, id, err)
		}
		states[id] = st
		fmt.Printf("%s tick=%d n=%d threat=%.3f curiosity=%.3f value=%.3f surprise=%.3f health=%.3f\n",
			id, obs.Tick, st.UpdateCount,
			st.Affect.Threat, st.Affect.Curiosity, st.Affect.Value, st.Affect.Surprise,
			st.Self.Health)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	fmt.Printf("replayed %d agents with seed %d\n", len(states), m.Seed)
	return nil
}
