package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_DefaultsFillUnsetFields(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "model.yaml")
	if err := os.WriteFile(p, []byte("model:\n  latent_dim: 64\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tn, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tn.Model.LatentDim != 64 {
		t.Fatalf("latent_dim: got %d want 64", tn.Model.LatentDim)
	}
	if tn.Model.VisualDim != 768 {
		t.Fatalf("visual_dim default: got %d", tn.Model.VisualDim)
	}
	if tn.ProtocolVersion != "1.0" {
		t.Fatalf("protocol_version default: %q", tn.ProtocolVersion)
	}
	if tn.Service.ReadTimeoutSec != 60 {
		t.Fatalf("read timeout default: %d", tn.Service.ReadTimeoutSec)
	}
}

func TestLoad_RejectsBadDropout(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "model.yaml")
	if err := os.WriteFile(p, []byte("model:\n  dropout_rate: 1.5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("want validation error for dropout 1.5")
	}
}

func TestModelConfig_CarriesDims(t *testing.T) {
	tn := Defaults()
	tn.Model.LatentDim = 128
	tn.Model.VisualDim = 512
	cfg := tn.ModelConfig()
	if cfg.LatentDim != 128 || cfg.VisualDim != 512 {
		t.Fatalf("config: %+v", cfg)
	}
}

func TestLoad_NegativeDimRejected_ZeroUsesDefault(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "model.yaml")
	if err := os.WriteFile(p, []byte("model:\n  latent_dim: -8\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil || !strings.Contains(err.Error(), "must not be negative") {
		t.Fatalf("want negative-dimension error, got %v", err)
	}

	// Zero is not an error: Normalize replaces it with the default first.
	if err := os.WriteFile(p, []byte("model:\n  latent_dim: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tn, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tn.Model.LatentDim != Defaults().Model.LatentDim {
		t.Fatalf("latent_dim: got %d", tn.Model.LatentDim)
	}
}
