package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"mentalworld.ai/internal/persistence/log"
	"mentalworld.ai/internal/persistence/snapshot"
)

// Reads an update log back and prints per-agent affect trajectories, so a
// session can be inspected offline without the service or the sqlite index.
// With -obs it instead feeds a recorded observation stream through a fresh
// model and prints the decoded trajectory.
func main() {
	var (
		updatesDir = flag.String("updates", "", "dir containing updates-*.jsonl.zst")
		snapPath   = flag.String("snapshot", "", "registry snapshot to summarize (optional)")
		obsPath    = flag.String("obs", "", "observation JSONL(.zst) to run through a fresh model (optional)")
		configPath = flag.String("config", "./configs/model.yaml", "path to model.yaml (with -obs)")
		agentID    = flag.String("agent", "", "only this agent (optional)")
		fromTick   = flag.Uint64("from_tick", 0, "start at tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		trace      = flag.Bool("trace", false, "print one line per update instead of a summary")
	)
	flag.Parse()

	if *obsPath != "" {
		if err := replayObservations(*obsPath, *configPath, *agentID); err != nil {
			fmt.Fprintln(os.Stderr, "replay observations:", err)
			os.Exit(1)
		}
		return
	}

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d model=%s latent=%d visual=%d seed=%d agents=%d next_agent=%d\n",
			snap.Header.Version, snap.Header.ModelID, snap.LatentDim, snap.VisualDim,
			snap.WeightSeed, len(snap.Agents), snap.NextAgent)
		for _, a := range snap.Agents {
			fmt.Printf("  %s name=%q updates=%d threat=%.3f curiosity=%.3f value=%.3f surprise=%.3f\n",
				a.ID, a.Name, a.State.UpdateCount,
				a.State.Affect.Threat, a.State.Affect.Curiosity, a.State.Affect.Value, a.State.Affect.Surprise)
		}
	}

	if *updatesDir == "" {
		if *snapPath == "" {
			fmt.Fprintln(os.Stderr, "missing -updates or -snapshot")
			os.Exit(2)
		}
		return
	}

	files, err := listUpdateFiles(*updatesDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list updates:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no update files found in", *updatesDir)
		os.Exit(1)
	}

	agents := map[string]*agentStats{}
	for _, path := range files {
		if err := scanFile(path, *agentID, *fromTick, *toTick, *trace, agents); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}

	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		st := agents[id]
		fmt.Printf("%s updates=%d ticks=%d..%d threat=%.3f..%.3f (last %.3f) surprise_mean=%.3f\n",
			id, st.count, st.firstTick, st.lastTick,
			st.minThreat, st.maxThreat, st.lastThreat, st.surpriseSum/float64(st.count))
	}
}

type agentStats struct {
	count                uint64
	firstTick, lastTick  uint64
	minThreat, maxThreat float64
	lastThreat           float64
	surpriseSum          float64
}

func listUpdateFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "updates-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func scanFile(path, agentID string, fromTick, toTick uint64, trace bool, agents map[string]*agentStats) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var entry log.UpdateLogEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if agentID != "" && entry.AgentID != agentID {
			continue
		}
		if entry.Tick < fromTick {
			continue
		}
		if toTick != 0 && entry.Tick > toTick {
			continue
		}
		if entry.State == nil {
			return fmt.Errorf("%s: entry without state (agent=%s tick=%d)", filepath.Base(path), entry.AgentID, entry.Tick)
		}

		af := entry.State.Affect
		if trace {
			fmt.Printf("%s tick=%d count=%d threat=%.3f curiosity=%.3f value=%.3f surprise=%.3f health=%.3f\n",
				entry.AgentID, entry.Tick, entry.State.UpdateCount,
				af.Threat, af.Curiosity, af.Value, af.Surprise, entry.State.Self.Health)
		}

		st := agents[entry.AgentID]
		if st == nil {
			st = &agentStats{firstTick: entry.Tick, minThreat: af.Threat, maxThreat: af.Threat}
			agents[entry.AgentID] = st
		}
		st.count++
		st.lastTick = entry.Tick
		st.lastThreat = af.Threat
		if af.Threat < st.minThreat {
			st.minThreat = af.Threat
		}
		if af.Threat > st.maxThreat {
			st.maxThreat = af.Threat
		}
		st.surpriseSum += af.Surprise
	}
	return sc.Err()
}
