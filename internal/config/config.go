package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Lobby  LobbyConfig  `yaml:"lobby"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" env:"PARTYPAD_PORT"`
	Host           string   `yaml:"host" env:"PARTYPAD_HOST"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"PARTYPAD_ALLOWED_ORIGINS" envSeparator:","`
}

type LobbyConfig struct {
	// IdleTTL is how long a lobby may sit without joins, input or
	// disconnects before the reaper removes it.
	IdleTTL      time.Duration `yaml:"idle_ttl" env:"PARTYPAD_LOBBY_IDLE_TTL"`
	ReapInterval time.Duration `yaml:"reap_interval" env:"PARTYPAD_LOBBY_REAP_INTERVAL"`
	// SendBuffer is the per-connection outbound queue size. A connection
	// that falls this far behind is dropped rather than stalling its lobby.
	SendBuffer int `yaml:"send_buffer" env:"PARTYPAD_SEND_BUFFER"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3001,
			Host: "0.0.0.0",
		},
		Lobby: LobbyConfig{
			IdleTTL:      30 * time.Minute,
			ReapInterval: time.Minute,
			SendBuffer:   64,
		},
	}
}

// Load reads the YAML config at path, falling back to defaults when the file
// does not exist, then applies PARTYPAD_* environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	return cfg, nil
}
