package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		dir, err := cacheDir()
		if err != nil {
			t.Fatalf("cacheDir: %v", err)
		}
		if want := filepath.Join(home, ".cache", appName); dir != want {
			t.Errorf("cacheDir() = %q, want %q", dir, want)
		}
	})

	t.Run("xdg", func(t *testing.T) {
		custom := t.TempDir()
		t.Setenv("XDG_CACHE_HOME", custom)
		dir, err := cacheDir()
		if err != nil {
			t.Fatalf("cacheDir: %v", err)
		}
		if want := filepath.Join(custom, appName); dir != want {
			t.Errorf("cacheDir() = %q, want %q", dir, want)
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		for _, cfg := range []struct {
			cfg     cacheConfig
			noCache bool
		}{
			{cacheConfig{Backend: backendFile}, true},
			{cacheConfig{Backend: backendNone}, false},
		} {
			c, err := newCache(t.Context(), cfg.cfg, cfg.noCache)
			if err != nil || c != nil {
				t.Errorf("newCache(%+v, %v) = %v, %v; want nil, nil", cfg.cfg, cfg.noCache, c, err)
			}
		}
	})

	t.Run("file dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "c")
		c, err := newCache(t.Context(), cacheConfig{Backend: backendFile, Dir: dir}, false)
		if err != nil {
			t.Fatalf("newCache: %v", err)
		}
		defer c.Close()
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("cache dir not created: %v", err)
		}
	})
}
