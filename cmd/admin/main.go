package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"mentalworld.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	modelID := fs.String("model", "", "model id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "models")
	if *modelID != "" {
		base = filepath.Join(base, *modelID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// inspectCmd prints the header and per-agent summary of a snapshot file.
func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	snapPath := fs.String("snapshot", "", "path to .snap.zst (required)")
	_ = fs.Parse(args)

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	printJSON(map[string]any{
		"version":       snap.Header.Version,
		"model_id":      snap.Header.ModelID,
		"saved_unix_ms": snap.Header.SavedUnixMs,
		"latent_dim":    snap.LatentDim,
		"visual_dim":    snap.VisualDim,
		"weight_seed":   snap.WeightSeed,
		"next_agent":    snap.NextAgent,
		"agents":        len(snap.Agents),
	})
	for _, a := range snap.Agents {
		printJSON(map[string]any{
			"id":            a.ID,
			"name":          a.Name,
			"update_count":  a.State.UpdateCount,
			"threat":        a.State.Affect.Threat,
			"curiosity":     a.State.Affect.Curiosity,
			"value":         a.State.Affect.Value,
			"surprise":      a.State.Affect.Surprise,
			"player_health": a.State.Self.Health,
		})
	}
}
