// Package config provides configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration settings
type Config struct {
	// Generation service
	BaseURL        string `json:"base_url"`
	APIToken       string `json:"api_token,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds"`

	// Editor defaults
	DefaultMode string `json:"default_mode"` // "create" or "edit"
	OutputDir   string `json:"output_dir"`   // where downloaded images are saved

	Progress ProgressConfig `json:"progress"`
	Log      LogConfig      `json:"log"`
	UI       UIConfig       `json:"ui"`
}

// ProgressConfig tunes the simulated progress bar.
type ProgressConfig struct {
	IntervalMS int     `json:"interval_ms"`
	MaxStep    float64 `json:"max_step"`
	Cap        float64 `json:"cap"`
	SettleMS   int     `json:"settle_ms"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `json:"level"` // DEBUG, INFO, WARN, ERROR
	File  string `json:"file"`  // empty logs to stderr
}

// UIConfig holds UI configuration
type UIConfig struct {
	AltScreen   bool `json:"alt_screen"`
	ConfirmQuit bool `json:"confirm_quit"` // ask before quitting during a generation
	ShowURL     bool `json:"show_url"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8000",
		TimeoutSeconds: 300,
		DefaultMode:    "create",
		OutputDir:      "generated_images",

		Progress: ProgressConfig{
			IntervalMS: 500,
			MaxStep:    10,
			Cap:        90,
			SettleMS:   500,
		},

		Log: LogConfig{
			Level: "INFO",
			File:  ".interior/interior.log",
		},

		UI: UIConfig{
			AltScreen:   true,
			ConfirmQuit: true,
			ShowURL:     true,
		},
	}
}

// GetConfigPaths returns a prioritized list of configuration file paths
func GetConfigPaths(cliPath string) []string {
	if cliPath != "" {
		return []string{cliPath}
	}

	paths := []string{
		".interior/config.json",
		"config.json",
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".interior", "config.json"))
	}
	return paths
}

// Load loads configuration from the first available path in the prioritized
// list. When no file exists, defaults are written to the project-local path.
func Load(cliPath string) (*Config, string, error) {
	loadDotEnv(".env")

	for _, path := range GetConfigPaths(cliPath) {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cfg := DefaultConfig()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, path, fmt.Errorf("invalid JSON in config file %s: %w", path, err)
		}
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, path, fmt.Errorf("configuration validation failed in %s: %w", path, err)
		}
		return cfg, path, nil
	}

	if cliPath != "" {
		return nil, cliPath, fmt.Errorf("config file %s not found", cliPath)
	}

	defaultPath := ".interior/config.json"
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, defaultPath, fmt.Errorf("default configuration validation failed: %w", err)
	}
	return cfg, defaultPath, cfg.Save(defaultPath)
}

// allowedEnvVars is a whitelist of variable names that may be set from .env
var allowedEnvVars = map[string]bool{
	"INTERIOR_BASE_URL":   true,
	"INTERIOR_API_TOKEN":  true,
	"INTERIOR_TIMEOUT":    true,
	"INTERIOR_OUTPUT_DIR": true,
	"INTERIOR_LOG_LEVEL":  true,
	"INTERIOR_LOG_FILE":   true,
}

// loadDotEnv copies whitelisted keys from an env file into the process
// environment without overriding variables that are already set.
func loadDotEnv(path string) {
	values, err := godotenv.Read(path)
	if err != nil {
		return // no .env, that's ok
	}
	for key, value := range values {
		if !allowedEnvVars[key] || os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to set environment variable %s: %v\n", key, err)
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INTERIOR_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("INTERIOR_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("INTERIOR_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("INTERIOR_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("INTERIOR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("INTERIOR_LOG_FILE"); ok {
		cfg.Log.File = v
	}
}

// RequestTimeout returns the generation timeout, defaulting to 5 minutes.
func (c *Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return 5 * time.Minute
}

// ProgressInterval returns the progress tick interval, defaulting to 500ms.
func (c *Config) ProgressInterval() time.Duration {
	if c.Progress.IntervalMS > 0 {
		return time.Duration(c.Progress.IntervalMS) * time.Millisecond
	}
	return 500 * time.Millisecond
}

// SettleDelay returns how long the finished progress bar stays visible.
func (c *Config) SettleDelay() time.Duration {
	if c.Progress.SettleMS >= 0 {
		return time.Duration(c.Progress.SettleMS) * time.Millisecond
	}
	return 500 * time.Millisecond
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600) // may hold api_token
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	if err := validateURL(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch strings.ToLower(c.DefaultMode) {
	case "", "create", "edit":
	default:
		return fmt.Errorf("default_mode must be \"create\" or \"edit\", got %q", c.DefaultMode)
	}

	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	if c.Progress.Cap < 0 || c.Progress.Cap > 100 {
		return fmt.Errorf("progress.cap must be between 0 and 100, got %v", c.Progress.Cap)
	}
	if c.Progress.MaxStep < 0 {
		return fmt.Errorf("progress.max_step must not be negative")
	}
	if c.Progress.IntervalMS < 0 || c.Progress.SettleMS < 0 {
		return fmt.Errorf("progress intervals must not be negative")
	}
	return nil
}

// validateURL validates that a URL is properly formatted
func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("base URL is required")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("URL must have a valid host")
	}
	return nil
}
