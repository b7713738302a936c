// Package archive keeps the snapshot directory bounded. Every retained
// milestone gets a meta.json so archived state stays identifiable without
// decompressing it.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mentalworld.ai/internal/persistence/snapshot"
)

type MilestoneMeta struct {
	ModelID     string `json:"model_id"`
	Agents      int    `json:"agents"`
	LatentDim   int    `json:"latent_dim"`
	WeightSeed  int64  `json:"weight_seed"`
	Snapshot    string `json:"snapshot"`
	SavedUnixMs int64  `json:"saved_unix_ms"`
	CreatedAt   string `json:"created_at"`
}

// ArchiveMilestone copies a snapshot into `modelDir/archives/<stamp>/` along
// with a meta.json. The stamp comes from the snapshot's save time so repeated
// calls for the same snapshot land in the same directory.
func ArchiveMilestone(modelDir, snapshotPath string, snap snapshot.SnapshotV1) (string, error) {
	stamp := time.UnixMilli(snap.Header.SavedUnixMs).UTC().Format("20060102-150405")
	archiveDir := filepath.Join(modelDir, "archives", stamp)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	meta := MilestoneMeta{
		ModelID:     snap.Header.ModelID,
		Agents:      len(snap.Agents),
		LatentDim:   snap.LatentDim,
		WeightSeed:  snap.WeightSeed,
		Snapshot:    filepath.Base(dst),
		SavedUnixMs: snap.Header.SavedUnixMs,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return dst, nil
}

// PruneSnapshots deletes the oldest periodic snapshots in dir, keeping the
// newest keep files. Snapshot names embed a UTC timestamp, so lexical order
// is age order. Returns the paths it removed.
func PruneSnapshots(dir string, keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "registry-") && strings.HasSuffix(e.Name(), ".snap.zst") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return nil, nil
	}
	sort.Strings(names)

	var removed []string
	for _, name := range names[:len(names)-keep] {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
