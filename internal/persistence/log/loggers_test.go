package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"mentalworld.ai/internal/mind/model"
)

func TestUpdateLogger_WriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	l := NewUpdateLogger(dir)

	st := model.NewState(4)
	st.UpdateCount = 3
	st.Affect.Curiosity = 0.6
	st.Preview = &model.Preview{} // must be stripped

	if err := l.WriteUpdate("A1", 12, st); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ents, err := os.ReadDir(filepath.Join(dir, "updates"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(ents) != 1 || !strings.HasSuffix(ents[0].Name(), ".jsonl.zst") {
		t.Fatalf("log files: %v", ents)
	}

	f, err := os.Open(filepath.Join(dir, "updates", ents[0].Name()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	if !sc.Scan() {
		t.Fatalf("no lines in log")
	}
	var entry UpdateLogEntry
	if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.AgentID != "A1" || entry.Tick != 12 {
		t.Fatalf("entry: %+v", entry)
	}
	if entry.State.UpdateCount != 3 || entry.State.Affect.Curiosity != 0.6 {
		t.Fatalf("state: %+v", entry.State)
	}
	if entry.State.Preview != nil {
		t.Fatalf("preview must not be logged")
	}
	if sc.Scan() {
		t.Fatalf("unexpected extra line")
	}
}
