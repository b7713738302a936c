// Package weights checkpoints model parameters. Fresh models are already
// reproducible from their seed; checkpoints exist so retrained or externally
// produced weights can be shipped and loaded with the same version safety as
// registry snapshots.
package weights

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

var ErrVersionMismatch = errors.New("weights version mismatch")

type Header struct {
	Version   int `json:"version"`
	LatentDim int `json:"latent_dim"`
	VisualDim int `json:"visual_dim"`
}

type CheckpointV1 struct {
	Header Header `json:"header"`

	Cfg  model.Config
	Seed int64
	Enc  *model.Encoder
	Pred *model.Predictor
	Dec  *model.Decoder
}

func Write(path string, m *model.Model) error {
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

	ckpt := CheckpointV1{
		Header: Header{Version: FormatVersion, LatentDim: m.Cfg.LatentDim, VisualDim: m.Cfg.VisualDim},
		Cfg:    m.Cfg,
		Seed:   m.Seed,
		Enc:    m.Enc,
		Pred:   m.Pred,
		Dec:    m.Dec,
	}
	hb, _ := json.Marshal(ckpt.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&ckpt); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// Read loads a checkpoint and reassembles a model. want carries the widths
// the caller's config expects; a checkpoint with different widths is
// rejected instead of being reinterpreted.
func Read(path string, want model.Config) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	_, _ = br.ReadBytes('\n')

	var ckpt CheckpointV1
	if err := gob.NewDecoder(br).Decode(&ckpt); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	if ckpt.Header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: container version %d, want %d", ErrVersionMismatch, ckpt.Header.Version, FormatVersion)
	}
	if ckpt.Cfg.LatentDim != want.LatentDim || ckpt.Cfg.VisualDim != want.VisualDim {
		return nil, fmt.Errorf("%w: checkpoint is %dx%d, config wants %dx%d",
			ErrVersionMismatch, ckpt.Cfg.LatentDim, ckpt.Cfg.VisualDim, want.LatentDim, want.VisualDim)
	}
	return model.RestoreParts(ckpt.Cfg, ckpt.Seed, ckpt.Enc, ckpt.Pred, ckpt.Dec), nil
}
