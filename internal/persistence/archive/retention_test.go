package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"mentalworld.ai/internal/persistence/snapshot"
)

func TestPruneSnapshots_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"registry-20260101-000000.snap.zst",
		"registry-20260101-010000.snap.zst",
		"registry-20260101-020000.snap.zst",
		"registry-20260101-030000.snap.zst",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// A non-snapshot file must survive pruning.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	removed, err := PruneSnapshots(dir, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("removed %d files, want 2", len(removed))
	}

	for _, n := range names[:2] {
		if _, err := os.Stat(filepath.Join(dir, n)); !os.IsNotExist(err) {
			t.Fatalf("%s should have been pruned", n)
		}
	}
	for _, n := range append(names[2:], "notes.txt") {
		if _, err := os.Stat(filepath.Join(dir, n)); err != nil {
			t.Fatalf("%s should have survived: %v", n, err)
		}
	}
}

func TestPruneSnapshots_UnderLimitIsNoop(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "registry-20260101-000000.snap.zst"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	removed, err := PruneSnapshots(dir, 3)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("removed %d files, want 0", len(removed))
	}
}

func TestPruneSnapshots_MissingDir(t *testing.T) {
	removed, err := PruneSnapshots(filepath.Join(t.TempDir(), "nope"), 3)
	if err != nil || len(removed) != 0 {
		t.Fatalf("missing dir should be a noop, got removed=%v err=%v", removed, err)
	}
}

func TestArchiveMilestone_CopiesSnapshotWithMeta(t *testing.T) {
	dir := t.TempDir()
	snapDir := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := filepath.Join(snapDir, "registry-20260102-120000.snap.zst")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:     snapshot.FormatVersion,
			ModelID:     "m1",
			SavedUnixMs: 1767355200000,
		},
		LatentDim:  8,
		WeightSeed: 7,
	}

	dst, err := ArchiveMilestone(dir, src, snap)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read archived copy: %v", err)
	}
	if string(b) != "payload" {
		t.Fatalf("archived copy corrupted: %q", b)
	}

	metaRaw, err := os.ReadFile(filepath.Join(filepath.Dir(dst), "meta.json"))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	var meta MilestoneMeta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		t.Fatalf("unmarshal meta: %v", err)
	}
	if meta.ModelID != "m1" || meta.LatentDim != 8 || meta.Snapshot != filepath.Base(dst) {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}
