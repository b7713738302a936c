package snapshot

import (
	"errors"
	"path/filepath"
	"testing"

	"mentalworld.ai/internal/mind/model"
	"mentalworld.ai/internal/mind/vecmath"
)

func sampleState(dim int) *model.State {
	st := model.NewState(dim)
	st.UpdateCount = 7
	st.UpdatedUnixMs = 1700000000000
	for i := range st.Latent {
		st.Latent[i] = float64(i) * 0.01
	}
	st.Affect.Threat = 0.4
	return st
}

func TestSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "snap", "registry.snap.zst")

	snap := SnapshotV1{
		Header:     Header{Version: FormatVersion, ModelID: "companion", SavedUnixMs: 1700000000000},
		LatentDim:  16,
		VisualDim:  8,
		WeightSeed: 1337,
		NextAgent:  2,
		Agents: []AgentV1{
			{ID: "A1", Name: "alpha", State: sampleState(16)},
			{ID: "A2", Name: "beta", State: sampleState(16)},
		},
	}
	if err := WriteSnapshot(p, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadSnapshot(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.NextAgent != 2 || len(got.Agents) != 2 {
		t.Fatalf("snapshot content: next=%d agents=%d", got.NextAgent, len(got.Agents))
	}
	if got.Agents[0].State.UpdateCount != 7 {
		t.Fatalf("agent state count: %d", got.Agents[0].State.UpdateCount)
	}
	if !vecmath.Equal(got.Agents[0].State.Latent, snap.Agents[0].State.Latent) {
		t.Fatalf("latent not preserved")
	}
	if got.Agents[1].State.Affect.Threat != 0.4 {
		t.Fatalf("affect not preserved: %v", got.Agents[1].State.Affect.Threat)
	}
}

func TestSnapshot_RejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "registry.snap.zst")

	snap := SnapshotV1{
		Header:    Header{Version: 99, ModelID: "companion"},
		LatentDim: 16,
		Agents:    []AgentV1{{ID: "A1", State: sampleState(16)}},
	}
	if err := WriteSnapshot(p, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := ReadSnapshot(p)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("want ErrVersionMismatch, got %v", err)
	}
}

func TestSnapshot_RejectsLatentWidthDrift(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "registry.snap.zst")

	snap := SnapshotV1{
		Header:    Header{Version: FormatVersion, ModelID: "companion"},
		LatentDim: 32, // header disagrees with the stored latent
		Agents:    []AgentV1{{ID: "A1", State: sampleState(16)}},
	}
	if err := WriteSnapshot(p, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := ReadSnapshot(p)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("want ErrVersionMismatch, got %v", err)
	}
}
