package logger

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/wonny/tradeassist/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantLevel zerolog.Level
	}{
		{
			name: "debug level",
			cfg: &config.Config{
				Env:       "development",
				LogLevel:  "debug",
				LogFormat: "json",
			},
			wantLevel: zerolog.DebugLevel,
		},
		{
			name: "info level",
			cfg: &config.Config{
				Env:       "production",
				LogLevel:  "info",
				LogFormat: "json",
			},
			wantLevel: zerolog.InfoLevel,
		},
		{
			name: "console format",
			cfg: &config.Config{
				Env:       "development",
				LogLevel:  "warn",
				LogFormat: "console",
			},
			wantLevel: zerolog.WarnLevel,
		},
		{
			name: "unknown level falls back to info",
			cfg: &config.Config{
				Env:       "staging",
				LogLevel:  "whatever",
				LogFormat: "json",
			},
			wantLevel: zerolog.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.cfg)
			if log == nil {
				t.Fatal("New() returned nil")
			}
			if got := zerolog.GlobalLevel(); got != tt.wantLevel {
				t.Errorf("global level = %v, want %v", got, tt.wantLevel)
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	cfg := &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"}
	log := New(cfg)

	child := log.WithFields(map[string]interface{}{
		"stock_code": "005930",
		"step":       2,
	})
	if child == nil {
		t.Fatal("WithFields() returned nil")
	}
	// Chaining must not mutate the parent
	if child == log {
		t.Error("WithFields() should return a new logger")
	}
}
