// Package config loads service configuration from an optional YAML file
// and POKER_-prefixed environment variables, with working defaults for
// every knob.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	WS      WSConfig      `mapstructure:"ws"`
	Bus     BusConfig     `mapstructure:"bus"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	// PublicDir holds the pre-built pages and assets. Empty disables
	// static serving; the realtime API works without it.
	PublicDir string `mapstructure:"public_dir"`
	// BaseURL is substituted into the game page for share links.
	BaseURL string `mapstructure:"base_url"`
}

type StorageConfig struct {
	DataFile string `mapstructure:"data_file"`
}

type LogConfig struct {
	// File, when set, receives a copy of the structured log stream in
	// addition to stdout.
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type SessionConfig struct {
	// DeleteGraceSeconds is how long an empty session survives before the
	// reaper removes it.
	DeleteGraceSeconds int `mapstructure:"delete_grace_seconds"`
}

type WSConfig struct {
	SendBuffer       int   `mapstructure:"send_buffer"`
	WriteWaitSeconds int   `mapstructure:"write_wait_seconds"`
	PongWaitSeconds  int   `mapstructure:"pong_wait_seconds"`
	MaxMessageBytes  int64 `mapstructure:"max_message_bytes"`
}

type BusConfig struct {
	Buffer int `mapstructure:"buffer"`
}

// LoadConfig reads configuration. An empty path means defaults plus
// environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http.addr", ":8412")
	v.SetDefault("http.public_dir", "public")
	v.SetDefault("http.base_url", "http://localhost:8412")
	v.SetDefault("storage.data_file", "data/games.json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("session.delete_grace_seconds", 120)
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("ws.write_wait_seconds", 10)
	v.SetDefault("ws.pong_wait_seconds", 60)
	v.SetDefault("ws.max_message_bytes", 1<<20)
	v.SetDefault("bus.buffer", 1024)

	v.SetEnvPrefix("POKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
