// Package config loads the optional YAML configuration file and applies
// environment variable overrides. Every field has a default, so running
// without a config file works out of the box.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for chargedash.
type Config struct {
	Storage Storage `yaml:"storage"`
	API     API     `yaml:"api"`
	Report  Report  `yaml:"report"`
	Logging Logging `yaml:"logging"`
}

// Storage holds paths for the raw-payload directory, the cache file, and the
// rendered dashboard.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	CacheFile  string `yaml:"cache_file"`
	OutputFile string `yaml:"output_file"`
}

// API holds hostnames and paging parameters for the Tesla endpoints. The
// hosts are overridable so tests can point the client at a local server.
type API struct {
	OwnerHost     string `yaml:"owner_host"`
	OwnershipHost string `yaml:"ownership_host"`
	AuthHost      string `yaml:"auth_host"`
	PageSize      int    `yaml:"page_size"`
}

// Report controls dashboard rendering.
type Report struct {
	TopLocations int    `yaml:"top_locations"`
	Title        string `yaml:"title"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			CacheFile:  "cache.json",
			OutputFile: filepath.Join("output", "dashboard.html"),
		},
		API: API{
			OwnerHost:     "owner-api.teslamotors.com",
			OwnershipHost: "ownership.tesla.com",
			AuthHost:      "auth.tesla.com",
			PageSize:      50,
		},
		Report: Report{
			TopLocations: 15,
			Title:        "Tesla Charging Dashboard",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads the YAML configuration file at path into a Config on top of the
// defaults, then applies environment variable overrides. An empty path skips
// the file and returns defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHARGEDASH_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CHARGEDASH_CACHE_FILE"); v != "" {
		cfg.Storage.CacheFile = v
	}
	if v := os.Getenv("CHARGEDASH_OUTPUT_FILE"); v != "" {
		cfg.Storage.OutputFile = v
	}
	if v := os.Getenv("CHARGEDASH_OWNER_HOST"); v != "" {
		cfg.API.OwnerHost = v
	}
	if v := os.Getenv("CHARGEDASH_OWNERSHIP_HOST"); v != "" {
		cfg.API.OwnershipHost = v
	}
	if v := os.Getenv("CHARGEDASH_AUTH_HOST"); v != "" {
		cfg.API.AuthHost = v
	}
	if v := os.Getenv("CHARGEDASH_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.API.PageSize = n
		}
	}
	if v := os.Getenv("CHARGEDASH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
