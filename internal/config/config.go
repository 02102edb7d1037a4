package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all paperscout configuration.
type Config struct {
	Fetch    FetchConfig    `yaml:"fetch"`
	Store    StoreConfig    `yaml:"store"`
	Engine   EngineConfig   `yaml:"engine"`
	Digest   DigestConfig   `yaml:"digest"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// FetchConfig holds arXiv source settings.
type FetchConfig struct {
	Provider          string   `yaml:"provider"`
	Categories        []string `yaml:"categories"`
	PapersPerCategory int      `yaml:"papers_per_category"`
	UserAgent         string   `yaml:"user_agent"`
	Endpoint          string   `yaml:"endpoint"` // override for tests
}

// StoreConfig holds database settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// EngineConfig holds embedding and classifier settings.
type EngineConfig struct {
	ModelPath    string  `yaml:"model_path"`
	VocabPath    string  `yaml:"vocab_path"`
	MinSamples   int     `yaml:"min_samples"`
	DefaultScore float64 `yaml:"default_score"`
}

// DigestConfig holds digest delivery settings.
type DigestConfig struct {
	Threshold  float64 `yaml:"threshold"`
	SendEmail  bool    `yaml:"send_email"`
	WebhookURL string  `yaml:"webhook_url"`
}

// ServerConfig holds dashboard API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"` // per-run daily log files live here
}

// SnapshotConfig holds corpus export settings.
type SnapshotConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration, matching the original
// daily workflow defaults.
func Default() Config {
	return Config{
		Fetch: FetchConfig{
			Provider:          "arxiv",
			Categories:        []string{"cs.AI", "cs.LG", "cs.CL"},
			PapersPerCategory: 25,
			UserAgent:         "paperscout/1.0",
		},
		Store: StoreConfig{Path: "data/papers.db"},
		Engine: EngineConfig{
			ModelPath:    "models/model_quantized.onnx",
			VocabPath:    "models/vocab.txt",
			MinSamples:   5,
			DefaultScore: 0.5,
		},
		Digest:   DigestConfig{Threshold: 0.5, SendEmail: true},
		Server:   ServerConfig{Addr: ":8490"},
		Logging:  LoggingConfig{Level: "info", Dir: "logs"},
		Snapshot: SnapshotConfig{Dir: "data/snapshots"},
	}
}

// Load reads configuration: defaults, then the YAML file at path (if it
// exists), then PAPERSCOUT_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	cfg.Fetch.Provider = getenv("PAPERSCOUT_PROVIDER", cfg.Fetch.Provider)
	if v := os.Getenv("PAPERSCOUT_CATEGORIES"); v != "" {
		cfg.Fetch.Categories = splitList(v)
	}
	cfg.Fetch.PapersPerCategory = getenvInt("PAPERSCOUT_PER_CATEGORY", cfg.Fetch.PapersPerCategory)
	cfg.Fetch.Endpoint = getenv("PAPERSCOUT_ARXIV_ENDPOINT", cfg.Fetch.Endpoint)

	cfg.Store.Path = getenv("PAPERSCOUT_DB_PATH", cfg.Store.Path)

	cfg.Engine.ModelPath = getenv("PAPERSCOUT_MODEL_PATH", cfg.Engine.ModelPath)
	cfg.Engine.VocabPath = getenv("PAPERSCOUT_VOCAB_PATH", cfg.Engine.VocabPath)
	cfg.Engine.DefaultScore = getenvFloat("PAPERSCOUT_DEFAULT_SCORE", cfg.Engine.DefaultScore)

	cfg.Digest.Threshold = getenvFloat("PAPERSCOUT_DIGEST_THRESHOLD", cfg.Digest.Threshold)
	cfg.Digest.WebhookURL = getenv("PAPERSCOUT_WEBHOOK_URL", cfg.Digest.WebhookURL)

	cfg.Server.Addr = getenv("PAPERSCOUT_ADDR", cfg.Server.Addr)

	cfg.Logging.Level = getenv("PAPERSCOUT_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Dir = getenv("PAPERSCOUT_LOG_DIR", cfg.Logging.Dir)

	cfg.Snapshot.Dir = getenv("PAPERSCOUT_SNAPSHOT_DIR", cfg.Snapshot.Dir)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// splitList parses a comma-separated list, trimming whitespace.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
