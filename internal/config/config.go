// Package config loads process configuration from an optional YAML file
// with environment-variable overrides. A .env file in the working
// directory is picked up first so local runs don't need exported vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. Secrets (GeminiAPIKey,
// TokenSigningKey, DatabaseURL) come from the environment only and are
// never read from the YAML file.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	LiveEndpoint    string        `yaml:"live_endpoint"`
	TokenServiceURL string        `yaml:"token_service_url"`
	Model           string        `yaml:"model"`
	Voice           string        `yaml:"voice"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	LogLevel        string        `yaml:"log_level"`

	GeminiAPIKey    string `yaml:"-"`
	TokenSigningKey string `yaml:"-"`
	DatabaseURL     string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:   ":8787",
		LiveEndpoint: "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent",
		Model:        "models/gemini-2.0-flash-live-001",
		Voice:        "Puck",
		TokenTTL:     30 * time.Minute,
		LogLevel:     "info",
	}
}

// Load reads path (skipped when empty or missing) and then applies
// environment overrides on top.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "MKEVOICE_LISTEN_ADDR")
	setString(&cfg.LiveEndpoint, "MKEVOICE_LIVE_ENDPOINT")
	setString(&cfg.TokenServiceURL, "MKEVOICE_TOKEN_SERVICE_URL")
	setString(&cfg.Model, "MKEVOICE_MODEL")
	setString(&cfg.Voice, "MKEVOICE_VOICE")
	setString(&cfg.LogLevel, "MKEVOICE_LOG_LEVEL")
	setDuration(&cfg.TokenTTL, "MKEVOICE_TOKEN_TTL")

	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.TokenSigningKey, "MKEVOICE_TOKEN_SIGNING_KEY")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
	}
}
