package weights

import (
	"errors"
	"path/filepath"
	"testing"

	"mentalworld.ai/internal/mind/feature"
	"mentalworld.ai/internal/mind/model"
	"mentalworld.ai/internal/mind/vecmath"
)

func TestCheckpoint_RoundTripPreservesForwardPass(t *testing.T) {
	cfg := model.Config{LatentDim: 16, VisualDim: 8, HiddenScale: 2, InitStd: 0.05}
	m := model.New(cfg, 2024)

	dir := t.TempDir()
	p := filepath.Join(dir, "weights", "companion.ckpt.zst")
	if err := Write(p, m); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := Read(p, cfg)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// The loaded model must compute the exact same forward pass.
	tac, _ := feature.PackTactical(feature.TacticalFeatures{ThreatLevel: 0.3, NumEnemiesTotal: 1})
	selfVec := feature.PackSelf(feature.SelfState{Health: 0.6})
	vis := vecmath.Zeros(8)
	z0 := vecmath.Zeros(16)

	za, err := m.Enc.Encode(z0, tac, vis, selfVec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	zb, err := loaded.Enc.Encode(z0, tac, vis, selfVec)
	if err != nil {
		t.Fatalf("encode loaded: %v", err)
	}
	if !vecmath.Equal(za, zb) {
		t.Fatalf("loaded weights diverge from originals")
	}

	act, _ := feature.PackAction(feature.ActionDescriptor{Kind: feature.ActionMove})
	pa, err := m.Pred.Predict(za, act)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	pb, err := loaded.Pred.Predict(zb, act)
	if err != nil {
		t.Fatalf("predict loaded: %v", err)
	}
	if !vecmath.Equal(pa, pb) {
		t.Fatalf("loaded predictor diverges")
	}
}

func TestCheckpoint_RejectsWidthMismatch(t *testing.T) {
	cfg := model.Config{LatentDim: 16, VisualDim: 8, HiddenScale: 2, InitStd: 0.05}
	m := model.New(cfg, 1)

	dir := t.TempDir()
	p := filepath.Join(dir, "companion.ckpt.zst")
	if err := Write(p, m); err != nil {
		t.Fatalf("write: %v", err)
	}

	other := cfg
	other.LatentDim = 32
	_, err := Read(p, other)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("want ErrVersionMismatch, got %v", err)
	}
}
