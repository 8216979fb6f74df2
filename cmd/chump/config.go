package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds CLI settings read from the environment. Flags take precedence.
type Config struct {
	Token    string        `envconfig:"PUSHOVER_TOKEN"`
	User     string        `envconfig:"PUSHOVER_USER"`
	BaseURL  string        `envconfig:"PUSHOVER_BASE_URL" default:"https://api.pushover.net/1/"`
	LogLevel string        `envconfig:"CHUMP_LOG_LEVEL" default:"warn"`
	Timeout  time.Duration `envconfig:"CHUMP_TIMEOUT" default:"30s"`
}

// LoadConfig loads envFile into the environment, if it exists, then reads Config.
// Variables already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Token == "" {
		return errors.New("missing application token: set PUSHOVER_TOKEN or pass --token")
	}
	return nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
