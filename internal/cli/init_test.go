package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"lifedash/internal/config"
	"lifedash/internal/log"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Config
		wantDebug bool
	}{
		{"debug json to file", config.Config{LogLevel: "debug", LogFormat: "json", LogFile: filepath.Join(t.TempDir(), "app.log")}, true},
		{"invalid falls back to info", config.Config{LogLevel: "loud", LogFormat: "xml"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer := SetupLogger(log.ComponentApp, &tt.cfg)
			defer closer.Close()
			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Fatalf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if slog.Default() != logger.Logger {
				t.Fatal("logger not installed as default")
			}
		})
	}
}

func TestLoadAndValidateConfig_RunsExtraChecks(t *testing.T) {
	cfg := &config.Config{
		Port:            "8081",
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 5 * time.Second,
		DataBackend:     "memory",
		JWTSecret:       "0123456789abcdef",
		JWTTTL:          time.Hour,
		LoginRateLimit:  5,
		APIRateLimit:    60,
		LogLevel:        "info",
		LogFormat:       "text",
	}
	called := false
	got := LoadAndValidateConfig(log.New(log.DefaultConfig()), cfg, func() error {
		called = true
		return nil
	})
	if got != cfg || !called {
		t.Fatalf("config %p (want %p), extra check called %v", got, cfg, called)
	}
}
