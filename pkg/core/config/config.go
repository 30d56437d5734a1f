// Package config loads service configuration from an optional YAML file with
// environment-variable overrides. A missing file just yields the defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Config holds every tunable of the service.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`
	// StatusPath is the progress record polled by the UI.
	StatusPath string `yaml:"status_path"`
	// ArtifactPath stores the combined extraction JSON of the last run.
	ArtifactPath string `yaml:"artifact_path"`
	// BackupDir holds the rotating database snapshots and the action log.
	BackupDir string `yaml:"backup_dir"`
	// BackupRetain bounds how many snapshots are kept.
	BackupRetain int `yaml:"backup_retain"`
	// Parts is the default chunk count for report segmentation.
	Parts int `yaml:"parts"`
	// Provider selects the extraction backend ("gemini" or "deepseek").
	Provider string `yaml:"provider"`
	// Model overrides the provider's default model name.
	Model string `yaml:"model"`
	// ListenAddr is the HTTP API bind address.
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		DBPath:       "morro_verde.db",
		StatusPath:   "progresso.json",
		ArtifactPath: "saida_extracao.json",
		BackupDir:    "backups",
		BackupRetain: 10,
		Parts:        15,
		Provider:     "gemini",
		ListenAddr:   ":8080",
	}
}

// Load reads the YAML file at path (skipped when absent) and then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MORRO_VERDE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MORRO_VERDE_STATUS"); v != "" {
		cfg.StatusPath = v
	}
	if v := os.Getenv("MORRO_VERDE_BACKUP_DIR"); v != "" {
		cfg.BackupDir = v
	}
	if v := os.Getenv("MORRO_VERDE_LISTEN"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("MORRO_VERDE_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("MORRO_VERDE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("MORRO_VERDE_PARTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Parts = n
		}
	}
}
