package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newAdminStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/v1/state", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model_id": "m1",
			"model_params": map[string]any{
				"latent_dim":     256,
				"visual_dim":     768,
				"schema_version": 1,
				"weight_seed":    1337,
			},
			"agents": []map[string]any{
				{"id": "A1", "update_count": 12, "updated_at_ms": 1700000000000},
			},
		})
	})
	mux.HandleFunc("/admin/v1/snapshot", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"path":   "/data/models/m1/snapshots/registry-20260831-120000.snap.zst",
			"agents": 3,
		})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestFetchState_DecodesServiceShape(t *testing.T) {
	ts := newAdminStub(t)

	st, err := fetchState(ts.URL + "/") // trailing slash must not break the path
	if err != nil {
		t.Fatalf("fetch state: %v", err)
	}
	if st.ModelID != "m1" {
		t.Fatalf("model id: %q", st.ModelID)
	}
	if st.ModelParams.LatentDim != 256 || st.ModelParams.WeightSeed != 1337 {
		t.Fatalf("model params: %+v", st.ModelParams)
	}
	if len(st.Agents) != 1 || st.Agents[0].ID != "A1" || st.Agents[0].UpdateCount != 12 {
		t.Fatalf("agents: %+v", st.Agents)
	}
}

func TestRequestSnapshot_DecodesResult(t *testing.T) {
	ts := newAdminStub(t)

	res, err := requestSnapshot(ts.URL)
	if err != nil {
		t.Fatalf("request snapshot: %v", err)
	}
	if !strings.HasSuffix(res.Path, ".snap.zst") || res.Agents != 3 {
		t.Fatalf("result: %+v", res)
	}
}

func TestFetchState_NonOKStatusIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(ts.Close)

	if _, err := fetchState(ts.URL); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("want status error, got %v", err)
	}
}
