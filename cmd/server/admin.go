package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"

	"mentalworld.ai/internal/mind/model"
	"mentalworld.ai/internal/mind/registry"
	"mentalworld.ai/internal/persistence/indexdb"
	"mentalworld.ai/internal/persistence/mirror"
	"mentalworld.ai/internal/protocol"
)

// Admin endpoints are loopback-only; they exist for the admin CLI and for
// poking a running service by hand.
type adminAPI struct {
	reg      *registry.Registry
	m        *model.Model
	modelID  string
	modelDir string
	idx      *indexdb.SQLiteIndex
	mr       *mirrorRuntime
	logger   *log.Logger
}

type adminStateResponse struct {
	ModelID     string               `json:"model_id"`
	ModelParams protocol.ModelParams `json:"model_params"`
	Agents      []adminAgent         `json:"agents"`
	MirrorStats *mirror.Stats        `json:"mirror_stats,omitempty"`
}

type adminAgent struct {
	ID          string `json:"id"`
	UpdateCount uint64 `json:"update_count"`
	UpdatedAtMs int64  `json:"updated_at_ms"`
}

func (a *adminAPI) stateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopback(r.RemoteAddr) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		resp := adminStateResponse{
			ModelID: a.modelID,
			ModelParams: protocol.ModelParams{
				LatentDim:     a.m.Cfg.LatentDim,
				VisualDim:     a.m.Cfg.VisualDim,
				SchemaVersion: model.SchemaVersion,
				WeightSeed:    a.m.Seed,
			},
		}
		for _, id := range a.reg.AgentIDs() {
			st, err := a.reg.State(id)
			if err != nil {
				continue
			}
			resp.Agents = append(resp.Agents, adminAgent{
				ID:          id,
				UpdateCount: st.UpdateCount,
				UpdatedAtMs: st.UpdatedUnixMs,
			})
		}
		if a.mr != nil && a.mr.enabled {
			st := a.mr.mirror.Stats()
			resp.MirrorStats = &st
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (a *adminAPI) snapshotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopback(r.RemoteAddr) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		path, snap, err := writeRegistrySnapshot(a.reg, a.m, a.modelID, a.modelDir, a.idx)
		if err != nil {
			a.logger.Printf("admin snapshot: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		a.mr.Enqueue(path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"path":   path,
			"agents": len(snap.Agents),
		})
	}
}

func isLoopback(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
