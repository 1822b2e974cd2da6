// Package config handles application configuration: a JSON file under the
// user config dir with environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	appName        = "screenbooth"
	configFileName = "config.json"
)

// SpeechConfig selects and configures the live speech-recognition backend.
type SpeechConfig struct {
	// Provider is "stream", "whisper" or "noop". Empty means noop.
	Provider string `json:"provider,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	URL      string `json:"url,omitempty"` // stream provider websocket endpoint
	BaseURL  string `json:"base_url,omitempty"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

// UploadConfig tunes the upload retry schedule.
type UploadConfig struct {
	MaxAttempts        int `json:"max_attempts"`
	BackoffStepSeconds int `json:"backoff_step_seconds"`
	BackoffCapSeconds  int `json:"backoff_cap_seconds"`
}

// Config represents the application configuration.
type Config struct {
	ServerURL          string       `json:"server_url"`
	CandidateID        string       `json:"candidate_id,omitempty"`
	MaxResponseSeconds int          `json:"max_response_seconds"`
	SpoolDir           string       `json:"spool_dir,omitempty"`
	Upload             UploadConfig `json:"upload"`
	Speech             SpeechConfig `json:"speech"`
}

// Load loads configuration from the config file, then applies environment
// overrides. Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}

	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url required")
	}
	if c.MaxResponseSeconds <= 0 {
		return fmt.Errorf("max_response_seconds must be positive")
	}
	if c.Upload.MaxAttempts <= 0 {
		return fmt.Errorf("upload.max_attempts must be positive")
	}
	switch c.Speech.Provider {
	case "", "noop", "stream", "whisper":
	default:
		return fmt.Errorf("unknown speech provider: %s", c.Speech.Provider)
	}
	return nil
}

// MaxResponseDuration returns the per-answer recording bound.
func (c *Config) MaxResponseDuration() time.Duration {
	return time.Duration(c.MaxResponseSeconds) * time.Second
}

// BackoffStep returns the linear upload backoff increment.
func (c *Config) BackoffStep() time.Duration {
	return time.Duration(c.Upload.BackoffStepSeconds) * time.Second
}

// BackoffCap returns the upload backoff ceiling.
func (c *Config) BackoffCap() time.Duration {
	return time.Duration(c.Upload.BackoffCapSeconds) * time.Second
}

// applyEnv overlays environment variables onto the file-based settings.
func (c *Config) applyEnv() {
	setString(&c.ServerURL, "SCREENBOOTH_SERVER_URL")
	setString(&c.CandidateID, "SCREENBOOTH_CANDIDATE_ID")
	setString(&c.SpoolDir, "SCREENBOOTH_SPOOL_DIR")
	setInt(&c.MaxResponseSeconds, "SCREENBOOTH_MAX_RESPONSE_SECONDS")
	setInt(&c.Upload.MaxAttempts, "SCREENBOOTH_UPLOAD_MAX_ATTEMPTS")
	setString(&c.Speech.Provider, "SCREENBOOTH_SPEECH_PROVIDER")
	setString(&c.Speech.APIKey, "SCREENBOOTH_SPEECH_API_KEY")
	setString(&c.Speech.URL, "SCREENBOOTH_SPEECH_URL")
	setString(&c.Speech.BaseURL, "SCREENBOOTH_SPEECH_BASE_URL")
	setString(&c.Speech.Model, "SCREENBOOTH_SPEECH_MODEL")
	setString(&c.Speech.Language, "SCREENBOOTH_SPEECH_LANGUAGE")
}

// applyDefaults fills unset fields with production defaults.
func (c *Config) applyDefaults() {
	if c.MaxResponseSeconds == 0 {
		c.MaxResponseSeconds = 120
	}
	if c.Upload.MaxAttempts == 0 {
		c.Upload.MaxAttempts = 8
	}
	if c.Upload.BackoffStepSeconds == 0 {
		c.Upload.BackoffStepSeconds = 2
	}
	if c.Upload.BackoffCapSeconds == 0 {
		c.Upload.BackoffCapSeconds = 10
	}
	if c.SpoolDir == "" {
		if cache, err := os.UserCacheDir(); err == nil {
			c.SpoolDir = filepath.Join(cache, appName, "spool")
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}
