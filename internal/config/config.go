// ABOUTME: Environment configuration for the flacframe tools
// ABOUTME: Loads an optional .env file, then FLACFRAME_* variables
package config

import (
	"context"
	"fmt"

	"github.com/Resonate-Protocol/flacframe/pkg/audio/reframe"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// LoadEnv loads variables from a .env file in the working directory.
// Existing environment variables win. A missing file is reported with an
// error that satisfies os.IsNotExist.
func LoadEnv() error {
	return godotenv.Load()
}

type ReframeConfig struct {
	IndexWindow float64 `env:"FLACFRAME_INDEX_WINDOW, default=1.0"`
	ForceCRC    bool    `env:"FLACFRAME_FORCE_CRC, default=false"`
	Timescale   uint32  `env:"FLACFRAME_TIMESCALE, default=0"`
	MaxBuffer   int     `env:"FLACFRAME_MAX_BUFFER, default=67108864"`
	ChunkSize   int     `env:"FLACFRAME_CHUNK_SIZE, default=4096"`
}

func NewReframeConfigFromEnv() (*ReframeConfig, error) {
	var cfg ReframeConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("FLACFRAME_CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.MaxBuffer < 0 {
		return nil, fmt.Errorf("FLACFRAME_MAX_BUFFER must not be negative, got %d", cfg.MaxBuffer)
	}

	return &cfg, nil
}

// Reframer converts the environment settings into a reframer configuration.
func (c *ReframeConfig) Reframer() reframe.Config {
	cfg := reframe.DefaultConfig()
	cfg.IndexWindow = c.IndexWindow
	cfg.ForceCRC = c.ForceCRC
	cfg.Timescale = c.Timescale
	if c.MaxBuffer > 0 {
		cfg.MaxBuffer = c.MaxBuffer
	}
	return cfg
}

type RelayConfig struct {
	Port     int    `env:"FLACFRAME_RELAY_PORT, default=8927"`
	Name     string `env:"FLACFRAME_RELAY_NAME, default=flacframe-relay"`
	MDNS     bool   `env:"FLACFRAME_RELAY_MDNS, default=true"`
	BufferMs int    `env:"FLACFRAME_RELAY_BUFFER_MS, default=500"`
}

func NewRelayConfigFromEnv() (*RelayConfig, error) {
	var cfg RelayConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("FLACFRAME_RELAY_PORT out of range: %d", cfg.Port)
	}
	if cfg.BufferMs < 0 {
		return nil, fmt.Errorf("FLACFRAME_RELAY_BUFFER_MS must not be negative, got %d", cfg.BufferMs)
	}

	return &cfg, nil
}
