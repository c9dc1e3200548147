package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/npym/pkg/config"
)

func TestCacheDir(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = ""

	dir, err := cacheDir(cfg)
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if filepath.Base(dir) != appName {
		t.Errorf("cacheDir() = %q, should end with %q", dir, appName)
	}

	cfg.Cache.Dir = "/tmp/npym-cache"
	if dir, _ := cacheDir(cfg); dir != "/tmp/npym-cache" {
		t.Errorf("cacheDir() = %q, want configured dir", dir)
	}
}

func TestCacheClearCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "entry.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(os.Stderr, LogInfo)
	c.cfg = config.Default()
	c.cfg.Cache.Dir = dir

	if err := c.cacheClearCommand().RunE(nil, nil); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("cache dir should be recreated: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("cache dir has %d entries after clear, want 0", len(entries))
	}
}
