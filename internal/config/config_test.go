package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MergesDefaultsAndEnv(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "trackmix.json")
	data := `{
		"logging": {"level": "debug"},
		"audio": {"sample_rate": 44100},
		"gain": {"curve": "cubic"}
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("TRACKMIX_ADDR", "127.0.0.1:9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected LOG_LEVEL to override config, got %q", cfg.Logging.Level)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Fatalf("expected sample rate to be 44100, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 2 {
		t.Fatalf("expected default channels to be preserved, got %d", cfg.Audio.Channels)
	}
	if cfg.Gain.Curve != "cubic" {
		t.Fatalf("expected cubic curve, got %q", cfg.Gain.Curve)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("expected addr from env, got %q", cfg.Server.Addr)
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "trackmix.toml")
	data := `
[loader]
concurrency = 2
timeout_ms = 1500

[gain]
throttle_ms = 50
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Loader.Concurrency != 2 {
		t.Fatalf("expected concurrency 2, got %d", cfg.Loader.Concurrency)
	}
	if cfg.Loader.Timeout() != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s timeout, got %v", cfg.Loader.Timeout())
	}
	if cfg.Gain.Throttle() != 50*time.Millisecond {
		t.Fatalf("expected 50ms throttle, got %v", cfg.Gain.Throttle())
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Gain.Curve != "linear" {
		t.Fatalf("expected linear curve by default, got %q", cfg.Gain.Curve)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"zero sample rate", func(c *AppConfig) { c.Audio.SampleRate = 0 }},
		{"too many channels", func(c *AppConfig) { c.Audio.Channels = 9 }},
		{"zero concurrency", func(c *AppConfig) { c.Loader.Concurrency = 0 }},
		{"negative timeout", func(c *AppConfig) { c.Loader.TimeoutMs = -1 }},
		{"unknown curve", func(c *AppConfig) { c.Gain.Curve = "exp" }},
		{"empty addr", func(c *AppConfig) { c.Server.Addr = " " }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}
