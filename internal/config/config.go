package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "config/trackmix.json"

type AppConfig struct {
	Logging LoggingConfig `json:"logging" toml:"logging"`
	Audio   AudioConfig   `json:"audio" toml:"audio"`
	Loader  LoaderConfig  `json:"loader" toml:"loader"`
	Gain    GainConfig    `json:"gain" toml:"gain"`
	Server  ServerConfig  `json:"server" toml:"server"`
}

type LoggingConfig struct {
	Level  string `json:"level" toml:"level"`
	Format string `json:"format" toml:"format"`
}

// AudioConfig 输出设备参数
type AudioConfig struct {
	SampleRate      int `json:"sample_rate" toml:"sample_rate"`
	Channels        int `json:"channels" toml:"channels"`
	FramesPerBuffer int `json:"frames_per_buffer" toml:"frames_per_buffer"`
}

type LoaderConfig struct {
	Concurrency int `json:"concurrency" toml:"concurrency"`
	// TimeoutMs 单条音轨获取+解码的超时，0 表示不限制
	TimeoutMs int   `json:"timeout_ms" toml:"timeout_ms"`
	MaxBytes  int64 `json:"max_bytes" toml:"max_bytes"`
}

type GainConfig struct {
	Curve      string `json:"curve" toml:"curve"`
	ThrottleMs int    `json:"throttle_ms" toml:"throttle_ms"`
}

type ServerConfig struct {
	Addr string `json:"addr" toml:"addr"`
	// AllowedOrigins 为空时允许任意来源（本地 webview）
	AllowedOrigins []string `json:"allowed_origins" toml:"allowed_origins"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Logging: LoggingConfig{},
		Audio: AudioConfig{
			SampleRate:      48000,
			Channels:        2,
			FramesPerBuffer: 1024,
		},
		Loader: LoaderConfig{
			Concurrency: 4,
			TimeoutMs:   0,
			MaxBytes:    1 << 30,
		},
		Gain: GainConfig{
			Curve:      "linear",
			ThrottleMs: 100,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:38125",
			AllowedOrigins: []string{
				"http://localhost:1420",
				"http://tauri.localhost",
			},
		},
	}
}

// Load 读取配置文件，按扩展名选择 JSON 或 TOML；文件不存在时使用默认值
func Load(path string) (*AppConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func (c *AppConfig) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		c.Logging.Format = format
	}
	if addr := strings.TrimSpace(os.Getenv("TRACKMIX_ADDR")); addr != "" {
		c.Server.Addr = addr
	}
}

func (c *AppConfig) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.Channels <= 0 || c.Audio.Channels > 8 {
		return errors.New("audio.channels must be between 1 and 8")
	}
	if c.Audio.FramesPerBuffer < 0 {
		return errors.New("audio.frames_per_buffer must be non-negative")
	}
	if c.Loader.Concurrency <= 0 {
		return errors.New("loader.concurrency must be positive")
	}
	if c.Loader.TimeoutMs < 0 {
		return errors.New("loader.timeout_ms must be non-negative")
	}
	if c.Loader.MaxBytes < 0 {
		return errors.New("loader.max_bytes must be non-negative")
	}
	if c.Gain.ThrottleMs < 0 {
		return errors.New("gain.throttle_ms must be non-negative")
	}

	switch strings.ToLower(strings.TrimSpace(c.Gain.Curve)) {
	case "", "linear", "cubic":
	default:
		return fmt.Errorf("invalid gain curve: %s", c.Gain.Curve)
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	return nil
}

func (c LoaderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c GainConfig) Throttle() time.Duration {
	return time.Duration(c.ThrottleMs) * time.Millisecond
}
