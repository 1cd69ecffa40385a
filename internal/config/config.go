package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Bot    BotConfig    `yaml:"bot"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	Host      string `yaml:"host"`
	AuthToken string `yaml:"auth_token"`
}

type BotConfig struct {
	// DataDir holds the user table. Empty means the default XDG state dir.
	DataDir   string `yaml:"data_dir"`
	TableFile string `yaml:"table_file"`

	Cooldown     time.Duration `yaml:"cooldown"`
	XPPerMessage int           `yaml:"xp_per_message"`

	// IgnoreBots drops activity events authored by other bots before any
	// XP accounting happens.
	IgnoreBots bool `yaml:"ignore_bots"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
}

// Load reads the config file at path on top of built-in defaults.
// A missing file is not an error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Bot: BotConfig{
			TableFile:    "userdata.csv",
			Cooldown:     10 * time.Second,
			XPPerMessage: 10,
			IgnoreBots:   true,
		},
		Log: LogConfig{
			Level:       "info",
			Environment: "development",
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
