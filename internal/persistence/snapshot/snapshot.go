// Package snapshot persists the full agent registry for save/load across
// process restarts. The container is a zstd stream holding a one-line JSON
// header (readable without decoding the body) followed by a gob body.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"mentalworld.ai/internal/mind/model"
)

const FormatVersion = 1

var ErrVersionMismatch = errors.New("snapshot version mismatch")

type Header struct {
	Version     int    `json:"version"`
	ModelID     string `json:"model_id"`
	SavedUnixMs int64  `json:"saved_unix_ms"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	// Model identity. Loads against a model with different widths or seed
	// are rejected rather than silently misinterpreting old latents.
	LatentDim  int   `json:"latent_dim"`
	VisualDim  int   `json:"visual_dim"`
	WeightSeed int64 `json:"weight_seed"`

	NextAgent uint64    `json:"next_agent"`
	Agents    []AgentV1 `json:"agents"`
}

type AgentV1 struct {
	ID    string       `json:"id"`
	Name  string       `json:"name,omitempty"`
	State *model.State `json:"state"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Read header line (gob also contains it; the line exists for tooling).
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != FormatVersion {
		return snap, fmt.Errorf("%w: container version %d, want %d", ErrVersionMismatch, snap.Header.Version, FormatVersion)
	}
	for _, a := range snap.Agents {
		if a.State == nil {
			return snap, fmt.Errorf("agent %s: missing state", a.ID)
		}
		if a.State.SchemaVersion != model.SchemaVersion {
			return snap, fmt.Errorf("%w: agent %s state schema %d, want %d",
				ErrVersionMismatch, a.ID, a.State.SchemaVersion, model.SchemaVersion)
		}
		if len(a.State.Latent) != snap.LatentDim {
			return snap, fmt.Errorf("%w: agent %s latent width %d, header says %d",
				ErrVersionMismatch, a.ID, len(a.State.Latent), snap.LatentDim)
		}
	}
	return snap, nil
}
