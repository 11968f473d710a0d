package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewWritesDailyFile(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	dir := t.TempDir()
	log, err := New(dir, "debug", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Infow("site suspended", "site_id", 1)
	_ = log.Sync()

	name := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	if _, err := os.Stat(name); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"", "debug", "info", "warn", "error"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Errorf("expected error for unknown level")
	}
}
