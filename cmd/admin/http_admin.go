package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"mentalworld.ai/internal/protocol"
)

// Wire shapes of the loopback admin endpoints in cmd/server.
type stateResponse struct {
	ModelID     string               `json:"model_id"`
	ModelParams protocol.ModelParams `json:"model_params"`
	Agents      []stateAgent         `json:"agents"`
	MirrorStats json.RawMessage      `json:"mirror_stats,omitempty"`
}

type stateAgent struct {
	ID          string `json:"id"`
	UpdateCount uint64 `json:"update_count"`
	UpdatedAtMs int64  `json:"updated_at_ms"`
}

type snapshotResult struct {
	Path   string `json:"path"`
	Agents int    `json:"agents"`
}

// stateCmd prints the running service's model params and per-agent update
// counters, one JSON line each like inspectCmd.
func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "mindd base url")
	_ = fs.Parse(args)

	st, err := fetchState(*baseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	printJSON(map[string]any{
		"model_id":       st.ModelID,
		"latent_dim":     st.ModelParams.LatentDim,
		"visual_dim":     st.ModelParams.VisualDim,
		"schema_version": st.ModelParams.SchemaVersion,
		"weight_seed":    st.ModelParams.WeightSeed,
		"agents":         len(st.Agents),
	})
	for _, a := range st.Agents {
		printJSON(map[string]any{
			"id":            a.ID,
			"update_count":  a.UpdateCount,
			"updated_at_ms": a.UpdatedAtMs,
		})
	}
	if len(st.MirrorStats) > 0 {
		printJSON(map[string]any{"mirror_stats": st.MirrorStats})
	}
}

// snapshotCmd asks the service to write a registry snapshot now.
func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "mindd base url")
	_ = fs.Parse(args)

	res, err := requestSnapshot(*baseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot written: %s (%d agents)\n", res.Path, res.Agents)
}

func fetchState(baseURL string) (stateResponse, error) {
	var st stateResponse
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(adminURL(baseURL, "state"))
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if err := decodeAdminBody(resp, &st); err != nil {
		return st, err
	}
	return st, nil
}

func requestSnapshot(baseURL string) (snapshotResult, error) {
	var res snapshotResult
	req, err := http.NewRequest(http.MethodPost, adminURL(baseURL, "snapshot"), nil)
	if err != nil {
		return res, err
	}
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()
	if err := decodeAdminBody(resp, &res); err != nil {
		return res, err
	}
	return res, nil
}

func adminURL(baseURL, op string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/admin/v1/" + op
}

func decodeAdminBody(resp *http.Response, v any) error {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.Unmarshal(b, v)
}
