package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	modelID := fs.String("model", "", "model id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	agentID := fs.String("agent", "", "agent_id filter (updates)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*modelID) == "" {
			fmt.Fprintln(os.Stderr, "missing -model or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "models", *modelID, "index", "updates.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT path,saved_unix_ms,agents,latent_dim FROM snapshots ORDER BY saved_unix_ms DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Path        string `json:"path"`
				SavedUnixMs int64  `json:"saved_unix_ms"`
				Agents      int    `json:"agents"`
				LatentDim   int    `json:"latent_dim"`
			}
			if err := rows.Scan(&r.Path, &r.SavedUnixMs, &r.Agents, &r.LatentDim); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "agents":
		// Latest row per agent.
		rows, err := db.Query(`SELECT u.agent_id,u.update_count,u.tick,u.threat,u.curiosity,u.value,u.surprise,u.self_health
			FROM updates u
			JOIN (SELECT agent_id, MAX(update_count) mc FROM updates GROUP BY agent_id) last
			ON u.agent_id = last.agent_id AND u.update_count = last.mc
			ORDER BY u.agent_id`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				AgentID     string  `json:"agent_id"`
				UpdateCount int64   `json:"update_count"`
				Tick        int64   `json:"tick"`
				Threat      float64 `json:"threat"`
				Curiosity   float64 `json:"curiosity"`
				Value       float64 `json:"value"`
				Surprise    float64 `json:"surprise"`
				SelfHealth  float64 `json:"self_health"`
			}
			if err := rows.Scan(&r.AgentID, &r.UpdateCount, &r.Tick, &r.Threat, &r.Curiosity, &r.Value, &r.Surprise, &r.SelfHealth); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "updates":
		query := `SELECT agent_id,update_count,tick,threat,curiosity,value,surprise,world_threat,self_health FROM updates ORDER BY tick DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*agentID) != "" {
			query = `SELECT agent_id,update_count,tick,threat,curiosity,value,surprise,world_threat,self_health FROM updates WHERE agent_id=? ORDER BY update_count DESC LIMIT ?`
			qargs = []any{strings.TrimSpace(*agentID), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				AgentID     string  `json:"agent_id"`
				UpdateCount int64   `json:"update_count"`
				Tick        int64   `json:"tick"`
				Threat      float64 `json:"threat"`
				Curiosity   float64 `json:"curiosity"`
				Value       float64 `json:"value"`
				Surprise    float64 `json:"surprise"`
				WorldThreat float64 `json:"world_threat"`
				SelfHealth  float64 `json:"self_health"`
			}
			if err := rows.Scan(&r.AgentID, &r.UpdateCount, &r.Tick, &r.Threat, &r.Curiosity, &r.Value, &r.Surprise, &r.WorldThreat, &r.SelfHealth); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "raw":
		if strings.TrimSpace(*agentID) == "" {
			fmt.Fprintln(os.Stderr, "missing -agent")
			os.Exit(2)
		}
		var raw string
		err := db.QueryRow(`SELECT raw_json FROM updates WHERE agent_id=? ORDER BY update_count DESC LIMIT 1`, strings.TrimSpace(*agentID)).Scan(&raw)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		fmt.Println(raw)

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-model ID|-db PATH] [-agent A] [-limit N] snapshots|agents|updates|raw")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
