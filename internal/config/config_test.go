package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %s", err)
	}
	if cfg.Storage.CacheFile != "cache.json" {
		t.Errorf("unexpected default cache file: %s", cfg.Storage.CacheFile)
	}
	if cfg.API.PageSize != 50 {
		t.Errorf("unexpected default page size: %d", cfg.API.PageSize)
	}
	if cfg.Report.TopLocations != 15 {
		t.Errorf("unexpected default top locations: %d", cfg.Report.TopLocations)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "storage:\n  cache_file: /tmp/alt-cache.json\napi:\n  page_size: 10\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %s", err)
	}
	if cfg.Storage.CacheFile != "/tmp/alt-cache.json" {
		t.Errorf("cache file not overridden: %s", cfg.Storage.CacheFile)
	}
	if cfg.API.PageSize != 10 {
		t.Errorf("page size not overridden: %d", cfg.API.PageSize)
	}
	// Unset fields keep their defaults.
	if cfg.API.OwnerHost != "owner-api.teslamotors.com" {
		t.Errorf("owner host default lost: %s", cfg.API.OwnerHost)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHARGEDASH_OWNER_HOST", "localhost:9999")
	t.Setenv("CHARGEDASH_PAGE_SIZE", "25")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.OwnerHost != "localhost:9999" {
		t.Errorf("env override not applied: %s", cfg.API.OwnerHost)
	}
	if cfg.API.PageSize != 25 {
		t.Errorf("env override not applied: %d", cfg.API.PageSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
