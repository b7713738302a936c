package mirror

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"models/m1/snapshots/a.snap.zst", "models/m1/snapshots/a.snap.zst"},
		{"/leading/slash", "leading/slash"},
		{"back\\slash\\path", "back/slash/path"},
		{"a/./b/../c", "a/c"},
		{"../escape", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizeKey(tc.in); got != tc.want {
			t.Fatalf("normalizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestObjectKey_RelativeToDataDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "models", "m1", "snapshots")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	local := filepath.Join(sub, "registry-20260101-000000.snap.zst")
	if err := os.WriteFile(local, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := &Mirror{dataDir: dir, prefix: "backups"}
	key, err := m.objectKey(local)
	if err != nil {
		t.Fatalf("objectKey: %v", err)
	}
	want := "backups/models/m1/snapshots/registry-20260101-000000.snap.zst"
	if key != want {
		t.Fatalf("key = %q, want %q", key, want)
	}

	if _, err := m.objectKey(filepath.Join(dir, "..", "outside.txt")); err == nil {
		t.Fatalf("path outside data dir must be rejected")
	}
}

func TestMirror_UploadsAndSigns(t *testing.T) {
	var mu sync.Mutex
	var gotPath, gotAuth, gotBody string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, "bucket", "ak", "sk")
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	dir := t.TempDir()
	local := filepath.Join(dir, "snap.zst")
	if err := os.WriteFile(local, []byte("snapshot-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := New(client, dir, "", 1, 8, nil)
	m.Enqueue(local)
	m.Close()

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/bucket/snap.zst" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody != "snapshot-bytes" {
		t.Fatalf("body = %q", gotBody)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=ak/") {
		t.Fatalf("authorization = %q", gotAuth)
	}

	st := m.Stats()
	if st.UploadSuccessTotal != 1 || st.UploadFailTotal != 0 {
		t.Fatalf("stats = %+v", st)
	}
}
