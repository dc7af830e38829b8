// Package config loads the process-wide Config at bootstrap, following
// broadcast-box's internal/environment (optional .env file via godotenv,
// then os.Getenv with defaults), but exposing the result as an explicit
// struct rather than package-level globals.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is every environment-driven knob the server needs at startup.
// Defaults match the policy values SPEC_FULL.md §9 Open Question (b)
// leaves to the implementer.
type Config struct {
	// SocketPath is the unix-domain-socket path SessionManagementServer
	// listens on.
	SocketPath string
	// DebugAddr is the listen address for the debugapi HTTP surface.
	DebugAddr string
	// MaxPlaybacks bounds PlaybackService's concurrent session slots.
	MaxPlaybacks int
	// AudioPartitionBytes / VideoPartitionBytes size each session's
	// shared-memory sub-region.
	AudioPartitionBytes uint32
	VideoPartitionBytes uint32
	// LogLevel controls the default slog level ("debug", "info", "warn", "error").
	LogLevel string
}

const (
	envSocketPath   = "RIALTO_SOCKET_PATH"
	envDebugAddr    = "RIALTO_DEBUG_ADDR"
	envMaxPlaybacks = "RIALTO_MAX_PLAYBACKS"
	envAudioBytes   = "RIALTO_AUDIO_PARTITION_BYTES"
	envVideoBytes   = "RIALTO_VIDEO_PARTITION_BYTES"
	envLogLevel     = "RIALTO_LOG_LEVEL"

	defaultSocketPath   = "/tmp/rialto.sock"
	defaultDebugAddr    = ":8080"
	defaultMaxPlaybacks = 4
	defaultAudioBytes   = 2 * 1024 * 1024
	defaultVideoBytes   = 6 * 1024 * 1024
	defaultLogLevel     = "info"
)

// Load reads an optional .env file (ignored if absent) and then resolves
// every field from the environment, falling back to defaults.
func Load(log *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("could not load .env file", "error", err)
	}

	maxPlaybacks, err := envInt(envMaxPlaybacks, defaultMaxPlaybacks)
	if err != nil {
		return nil, err
	}
	audioBytes, err := envUint32(envAudioBytes, defaultAudioBytes)
	if err != nil {
		return nil, err
	}
	videoBytes, err := envUint32(envVideoBytes, defaultVideoBytes)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SocketPath:          envOr(envSocketPath, defaultSocketPath),
		DebugAddr:           envOr(envDebugAddr, defaultDebugAddr),
		MaxPlaybacks:        maxPlaybacks,
		AudioPartitionBytes: audioBytes,
		VideoPartitionBytes: videoBytes,
		LogLevel:            envOr(envLogLevel, defaultLogLevel),
	}
	if cfg.MaxPlaybacks <= 0 {
		return nil, fmt.Errorf("config: %s must be positive, got %d", envMaxPlaybacks, cfg.MaxPlaybacks)
	}
	return cfg, nil
}

// SlogLevel parses LogLevel into a slog.Level, defaulting to Info on an
// unrecognized value.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envUint32(key string, fallback uint32) (uint32, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return uint32(n), nil
}
