package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the boot-time configuration of the panel firmware. Everything a
// field technician may change at runtime (server URL, token, timezone, PIN)
// lives in the settings store instead; this file only holds what is fixed per
// image: paths, ports and timer cadences.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Poll     PollConfig     `yaml:"poll"`
	Firmware FirmwareConfig `yaml:"firmware"`
	Display  DisplayConfig  `yaml:"display"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the local provisioning endpoint settings.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	SessionTTLMin   int     `yaml:"session_ttl_minutes"`
}

// StoreConfig holds the on-device settings database location.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// PollConfig holds the cadences of the periodic loop work.
type PollConfig struct {
	StatusSeconds        int           `yaml:"status_seconds"`
	PingSeconds          int           `yaml:"ping_seconds"`
	FirmwareCheckSeconds int           `yaml:"firmware_check_seconds"`
	RetrySeconds         int           `yaml:"retry_seconds"`
	StatusInterval       time.Duration `yaml:"-"`
	PingInterval         time.Duration `yaml:"-"`
	FirmwareInterval     time.Duration `yaml:"-"`
	RetryInterval        time.Duration `yaml:"-"`
}

// FirmwareConfig identifies the running image and where updates are staged.
type FirmwareConfig struct {
	Version     string `yaml:"version"`
	ImagePath   string `yaml:"image_path"`
	StagingPath string `yaml:"staging_path"`
}

// DisplayConfig holds screen geometry and the inactivity timeout.
type DisplayConfig struct {
	Width          int `yaml:"width"`
	Height         int `yaml:"height"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LogConfig selects logger verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 80
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 5
	}
	if cfg.Server.SessionTTLMin <= 0 {
		cfg.Server.SessionTTLMin = 30
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "/var/lib/roompanel/settings.db"
	}
	if cfg.Poll.StatusSeconds <= 0 {
		cfg.Poll.StatusSeconds = 30
	}
	if cfg.Poll.PingSeconds <= 0 {
		cfg.Poll.PingSeconds = 60
	}
	if cfg.Poll.FirmwareCheckSeconds <= 0 {
		cfg.Poll.FirmwareCheckSeconds = 300
	}
	if cfg.Poll.RetrySeconds <= 0 {
		cfg.Poll.RetrySeconds = 30
	}
	cfg.Poll.StatusInterval = time.Duration(cfg.Poll.StatusSeconds) * time.Second
	cfg.Poll.PingInterval = time.Duration(cfg.Poll.PingSeconds) * time.Second
	cfg.Poll.FirmwareInterval = time.Duration(cfg.Poll.FirmwareCheckSeconds) * time.Second
	cfg.Poll.RetryInterval = time.Duration(cfg.Poll.RetrySeconds) * time.Second

	if cfg.Firmware.Version == "" {
		cfg.Firmware.Version = "0.0.0-dev"
	}
	if cfg.Firmware.ImagePath == "" {
		cfg.Firmware.ImagePath = "/var/lib/roompanel/firmware.img"
	}
	if cfg.Firmware.StagingPath == "" {
		cfg.Firmware.StagingPath = "/var/lib/roompanel/firmware.img.next"
	}
	if cfg.Display.Width <= 0 {
		cfg.Display.Width = 320
	}
	if cfg.Display.Height <= 0 {
		cfg.Display.Height = 240
	}
	if cfg.Display.TimeoutSeconds <= 0 {
		cfg.Display.TimeoutSeconds = 120
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
