// Package config loads the realm server configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mezhov/kingdoms/internal/war"
)

// Server holds all configuration for the realm server.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Tick loop
	TickMillis          int   `yaml:"tick_millis"`
	AutosaveTicks       int64 `yaml:"autosave_ticks"`
	HUDIntervalTicks    int64 `yaml:"hud_interval_ticks"`
	BorderDebounceTicks int64 `yaml:"border_debounce_ticks"`

	// War lifecycle
	War war.Config `yaml:"war"`

	// Admin player identities (UUID strings) allowed to run forcejoin
	Admins []string `yaml:"admins"`

	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultServer returns Server config with sensible defaults: a 50ms tick,
// autosave every five minutes, HUD once a second, borders coalesced over
// two seconds.
func DefaultServer() Server {
	return Server{
		BindAddress:         "0.0.0.0",
		Port:                8777,
		TickMillis:          50,
		AutosaveTicks:       6000,
		HUDIntervalTicks:    20,
		BorderDebounceTicks: 40,
		War:                 war.DefaultConfig(),
		LogLevel:            "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "kingdoms",
			Password: "kingdoms",
			DBName:   "kingdoms",
			SSLMode:  "disable",
		},
	}
}

// LoadServer loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
