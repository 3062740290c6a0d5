package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetLoggerOverrides(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil))
	SetLogger(custom)
	t.Cleanup(Discard)

	Named("scan").Info("hello", slog.String("wallet", "0xabc"))

	out := buf.String()
	if !strings.Contains(out, "component=scan") || !strings.Contains(out, "wallet=0xabc") {
		t.Fatalf("unexpected log output: %q", out)
	}
	if Audit() != custom {
		t.Fatalf("audit logger should follow SetLogger")
	}
}

func TestInitWritesAuditFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit", "scans.log")
	if err := Init(Config{Output: []string{"discard"}, Audit: AuditConfig{Enabled: true, Path: path}}); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = Sync()
		Discard()
	})

	Audit().Info("scan completed", slog.Int("score", 77))
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(data), `"score":77`) {
		t.Fatalf("audit record missing: %s", data)
	}
}

func TestRotatingWriterShiftsBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	w, err := newRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.maxSize = 8
	defer w.Close()

	for _, chunk := range []string{"aaaaaa", "bbbbbb", "cccccc"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	for name, want := range map[string]string{path: "cccccc", path + ".1": "bbbbbb", path + ".2": "aaaaaa"} {
		data, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != want {
			t.Fatalf("%s: got %q want %q", name, data, want)
		}
	}
}
