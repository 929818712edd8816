package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLogFileCreatesTimestampedFile(t *testing.T) {
	dir := t.TempDir()

	f, err := SetupLogFile(dir, 5)
	if err != nil {
		t.Fatalf("SetupLogFile() error = %v", err)
	}
	defer f.Close()

	name := filepath.Base(f.Name())
	if !strings.HasPrefix(name, "server-") || !strings.HasSuffix(name, ".log") {
		t.Errorf("log file name = %q, want server-*.log", name)
	}

	if _, err := os.Stat(f.Name()); err != nil {
		t.Errorf("log file not on disk: %v", err)
	}
}

func TestSetupLogFileCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	f, err := SetupLogFile(dir, 5)
	if err != nil {
		t.Fatalf("SetupLogFile() error = %v", err)
	}
	f.Close()
}

func TestSetupLogFilePrunesOldest(t *testing.T) {
	dir := t.TempDir()

	// Seed stale logs with names that sort before any new timestamp
	stale := []string{
		"server-2020-01-01T00-00-01.log",
		"server-2020-01-01T00-00-02.log",
		"server-2020-01-01T00-00-03.log",
	}
	for _, name := range stale {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	f, err := SetupLogFile(dir, 2)
	if err != nil {
		t.Fatalf("SetupLogFile() error = %v", err)
	}
	defer f.Close()

	files, err := filepath.Glob(filepath.Join(dir, "server-*.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d log files after pruning, want 2", len(files))
	}
	for _, kept := range files {
		if filepath.Base(kept) == stale[0] || filepath.Base(kept) == stale[1] {
			t.Errorf("oldest log %s survived pruning", filepath.Base(kept))
		}
	}
}
