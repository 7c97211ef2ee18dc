package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWithFileWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hackfeed.log")
	log, err := NewWithFile("production", &FileOptions{Path: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("NewWithFile: %v", err)
	}
	log.With("component", "test").Info("lifecycle run finished", "generated", 10)
	log.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(raw)
	if !strings.Contains(line, `"msg":"lifecycle run finished"`) {
		t.Fatalf("missing message in %q", line)
	}
	if !strings.Contains(line, `"component":"test"`) || !strings.Contains(line, `"generated":10`) {
		t.Fatalf("missing fields in %q", line)
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("ignored", "k", "v")
	log.With("a", 1).Error("ignored")
	log.Sync()
}
