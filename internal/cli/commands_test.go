package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/iTrooz/respcache/internal/cache"
	"github.com/iTrooz/respcache/internal/config"
)

// withConfig points the CLI at a config file backed by its own cache folder
// and restores the previous state when the test finishes.
func withConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	folder := filepath.Join(dir, "cache")
	path := filepath.Join(dir, "config.yaml")

	yaml := fmt.Sprintf(`server:
  port: 8080
cache:
  folder: %s
  enabled: true
  freshness: until-cleared
rules:
  mode: blacklist
log:
  level: error
`, folder)
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	oldPath, oldAll := configPath, purgeAll
	configPath = path
	purgeAll = false
	t.Cleanup(func() {
		configPath = oldPath
		purgeAll = oldAll
	})
	return folder
}

func seedEntry(t *testing.T, folder, uri string) *cache.Cache {
	t.Helper()
	c := cache.New(cache.Config{Root: folder}, cache.Request{URI: uri}, cache.Options{Freshness: cache.UntilCleared})
	if err := c.Save(map[string]string{"from": uri}); err != nil {
		t.Fatalf("Save(%q) = %v", uri, err)
	}
	return c
}

func entryExists(t *testing.T, c *cache.Cache) bool {
	t.Helper()
	_, err := os.Stat(c.Path())
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("Stat(%q) = %v", c.Path(), err)
	}
	return err == nil
}

func TestHandleInitConfig(t *testing.T) {
	old := configPath
	configPath = filepath.Join(t.TempDir(), "config.yaml")
	t.Cleanup(func() { configPath = old })

	if err := handleInitConfig(initConfigCmd, nil); err != nil {
		t.Fatalf("handleInitConfig() = %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("generated config does not validate: %v", err)
	}

	if err := handleInitConfig(initConfigCmd, nil); err == nil {
		t.Error("handleInitConfig() on existing file should fail")
	}
}

func TestHandlePurge(t *testing.T) {
	folder := withConfig(t)
	users := seedEntry(t, folder, "api.example.com/users")
	posts := seedEntry(t, folder, "api.example.com/posts")

	var out bytes.Buffer
	purgeCmd.SetOut(&out)

	if err := handlePurge(purgeCmd, []string{"api.example.com/users"}); err != nil {
		t.Fatalf("handlePurge() = %v", err)
	}
	if entryExists(t, users) {
		t.Error("purged entry still on disk")
	}
	if !entryExists(t, posts) {
		t.Error("unrelated entry was removed")
	}
}

func TestHandlePurgeAll(t *testing.T) {
	folder := withConfig(t)
	users := seedEntry(t, folder, "api.example.com/users")
	other := seedEntry(t, folder, "other.example.com/items")
	purgeAll = true

	var out bytes.Buffer
	purgeCmd.SetOut(&out)

	if err := handlePurge(purgeCmd, nil); err != nil {
		t.Fatalf("handlePurge() = %v", err)
	}
	if entryExists(t, users) || entryExists(t, other) {
		t.Error("entries survived a full purge")
	}
}

func TestHandlePurgeRequiresAddress(t *testing.T) {
	withConfig(t)

	if err := handlePurge(purgeCmd, nil); err == nil {
		t.Error("handlePurge() without address or --all should fail")
	}
}
