// Package tuning loads the model/service configuration. Unset fields take
// defaults; impossible values fail validation instead of being corrected
// silently.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mentalworld.ai/internal/mind/model"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Model   ModelTuning   `yaml:"model"`
	Service ServiceTuning `yaml:"service"`
}

type ModelTuning struct {
	LatentDim   int     `yaml:"latent_dim"`
	VisualDim   int     `yaml:"visual_dim"`
	HiddenScale int     `yaml:"hidden_scale"`
	DropoutRate float64 `yaml:"dropout_rate"`
	InitStd     float64 `yaml:"init_std"`
	WeightSeed  int64   `yaml:"weight_seed"`
}

type ServiceTuning struct {
	ReadTimeoutSec     int `yaml:"read_timeout_sec"`
	WriteTimeoutSec    int `yaml:"write_timeout_sec"`
	SnapshotEverySec   int `yaml:"snapshot_every_sec"`
	IndexFlushEveryRow int `yaml:"index_flush_every_rows"`
}

func Defaults() Tuning {
	mc := model.DefaultConfig()
	return Tuning{
		ProtocolVersion: "1.0",
		Model: ModelTuning{
			LatentDim:   mc.LatentDim,
			VisualDim:   mc.VisualDim,
			HiddenScale: mc.HiddenScale,
			DropoutRate: mc.DropoutRate,
			InitStd:     mc.InitStd,
			WeightSeed:  1337,
		},
		Service: ServiceTuning{
			ReadTimeoutSec:     60,
			WriteTimeoutSec:    5,
			SnapshotEverySec:   300,
			IndexFlushEveryRow: 64,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("model.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("model.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	d := Defaults()
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = d.ProtocolVersion
	}
	if t.Model.LatentDim == 0 {
		t.Model.LatentDim = d.Model.LatentDim
	}
	if t.Model.VisualDim == 0 {
		t.Model.VisualDim = d.Model.VisualDim
	}
	if t.Model.HiddenScale == 0 {
		t.Model.HiddenScale = d.Model.HiddenScale
	}
	if t.Model.InitStd == 0 {
		t.Model.InitStd = d.Model.InitStd
	}
	if t.Service.ReadTimeoutSec == 0 {
		t.Service.ReadTimeoutSec = d.Service.ReadTimeoutSec
	}
	if t.Service.WriteTimeoutSec == 0 {
		t.Service.WriteTimeoutSec = d.Service.WriteTimeoutSec
	}
	if t.Service.SnapshotEverySec == 0 {
		t.Service.SnapshotEverySec = d.Service.SnapshotEverySec
	}
	if t.Service.IndexFlushEveryRow == 0 {
		t.Service.IndexFlushEveryRow = d.Service.IndexFlushEveryRow
	}
}

func (t *Tuning) Validate() error {
	if t.Model.LatentDim < 0 || t.Model.VisualDim < 0 || t.Model.HiddenScale < 0 {
		return fmt.Errorf("model dimensions must not be negative")
	}
	if t.Model.DropoutRate < 0 || t.Model.DropoutRate >= 1 {
		return fmt.Errorf("dropout_rate %v outside [0,1)", t.Model.DropoutRate)
	}
	if t.Model.InitStd < 0 {
		return fmt.Errorf("init_std must not be negative")
	}
	return nil
}

// ModelConfig translates the tuned dimensions into a model.Config.
func (t *Tuning) ModelConfig() model.Config {
	return model.Config{
		LatentDim:   t.Model.LatentDim,
		VisualDim:   t.Model.VisualDim,
		HiddenScale: t.Model.HiddenScale,
		DropoutRate: t.Model.DropoutRate,
		InitStd:     t.Model.InitStd,
	}
}
