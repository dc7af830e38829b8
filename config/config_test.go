package config

import (
	"io"
	"log/slog"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envSocketPath, envDebugAddr, envMaxPlaybacks, envAudioBytes, envVideoBytes, envLogLevel} {
		old, existed := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if existed {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SocketPath != defaultSocketPath || cfg.MaxPlaybacks != defaultMaxPlaybacks {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	clearEnv(t)
	os.Setenv(envMaxPlaybacks, "8")
	os.Setenv(envSocketPath, "/tmp/custom.sock")

	cfg, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxPlaybacks != 8 || cfg.SocketPath != "/tmp/custom.sock" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsNonPositiveMaxPlaybacks(t *testing.T) {
	clearEnv(t)
	os.Setenv(envMaxPlaybacks, "0")

	if _, err := Load(testLogger()); err == nil {
		t.Fatal("expected Load to reject MaxPlaybacks=0")
	}
}

func TestSlogLevelDefaultsToInfo(t *testing.T) {
	cfg := &Config{LogLevel: "nonsense"}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected LevelInfo fallback, got %v", cfg.SlogLevel())
	}
}
