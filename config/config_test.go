package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileMissingGivesDefaults(t *testing.T) {
	cfg, err := loadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	cfg.applyDefaults()

	if cfg.MaxResponseSeconds != 120 {
		t.Errorf("MaxResponseSeconds = %d, want 120", cfg.MaxResponseSeconds)
	}
	if cfg.Upload.MaxAttempts != 8 {
		t.Errorf("Upload.MaxAttempts = %d, want 8", cfg.Upload.MaxAttempts)
	}
	if cfg.Upload.BackoffStepSeconds != 2 || cfg.Upload.BackoffCapSeconds != 10 {
		t.Errorf("backoff = %+v", cfg.Upload)
	}
	if cfg.MaxResponseDuration() != 2*time.Minute {
		t.Errorf("MaxResponseDuration = %v", cfg.MaxResponseDuration())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := Config{
		ServerURL:          "https://interviews.example.com",
		MaxResponseSeconds: 90,
		Speech:             SpeechConfig{Provider: "whisper", APIKey: "sk-test"},
	}
	data, _ := json.Marshal(raw)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFile(path)
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	cfg.applyDefaults()

	if cfg.ServerURL != "https://interviews.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.MaxResponseSeconds != 90 {
		t.Errorf("MaxResponseSeconds = %d", cfg.MaxResponseSeconds)
	}
	if cfg.Speech.Provider != "whisper" {
		t.Errorf("Speech = %+v", cfg.Speech)
	}
	// Unset sections still get defaults.
	if cfg.Upload.MaxAttempts != 8 {
		t.Errorf("Upload.MaxAttempts = %d", cfg.Upload.MaxAttempts)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCREENBOOTH_SERVER_URL", "https://override.example.com")
	t.Setenv("SCREENBOOTH_MAX_RESPONSE_SECONDS", "45")
	t.Setenv("SCREENBOOTH_SPEECH_PROVIDER", "stream")

	cfg := &Config{ServerURL: "https://file.example.com", MaxResponseSeconds: 120}
	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.ServerURL != "https://override.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.MaxResponseSeconds != 45 {
		t.Errorf("MaxResponseSeconds = %d", cfg.MaxResponseSeconds)
	}
	if cfg.Speech.Provider != "stream" {
		t.Errorf("Speech.Provider = %q", cfg.Speech.Provider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing server url", func(c *Config) { c.ServerURL = "" }, true},
		{"zero response bound", func(c *Config) { c.MaxResponseSeconds = 0 }, true},
		{"zero attempts", func(c *Config) { c.Upload.MaxAttempts = 0 }, true},
		{"unknown provider", func(c *Config) { c.Speech.Provider = "telepathy" }, true},
		{"noop provider", func(c *Config) { c.Speech.Provider = "noop" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ServerURL: "https://x.example.com"}
			cfg.applyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
