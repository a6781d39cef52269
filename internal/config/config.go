package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Moneta        MonetaConfig   `toml:"moneta"`
	Schedule      ScheduleConfig `toml:"schedule"`
	OpenAI        OpenAIConfig   `toml:"openai"`
	Notifications NotifyConfig   `toml:"notifications"`
}

type MonetaConfig struct {
	AccessToken     string `toml:"access_token"`
	BaseURL         string `toml:"base_url"`
	ZoneID          string `toml:"zone_id"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
}

type ScheduleConfig struct {
	StepMinutes int `toml:"step_minutes"` // 15 or 30
}

type OpenAIConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		Moneta: MonetaConfig{
			ZoneID:          "1",
			CacheTTLMinutes: 10,
		},
		Schedule: ScheduleConfig{
			StepMinutes: 30,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
	}
}

// Validate rejects config values the cloud would refuse anyway.
func (c *Config) Validate() error {
	if s := c.Schedule.StepMinutes; s != 15 && s != 30 {
		return fmt.Errorf("schedule.step_minutes must be 15 or 30, got %d", s)
	}
	return nil
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "thermoweek"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadPath(path)
}

// LoadPath reads a config file, falling back to defaults when it does not
// exist. Environment variables override file values either way.
func LoadPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return &cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, cfg.Validate()
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MONETA_ACCESS_TOKEN"); v != "" {
		cfg.Moneta.AccessToken = v
	}
	if v := os.Getenv("MONETA_BASE_URL"); v != "" {
		cfg.Moneta.BaseURL = v
	}
	if v := os.Getenv("MONETA_ZONE_ID"); v != "" {
		cfg.Moneta.ZoneID = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
