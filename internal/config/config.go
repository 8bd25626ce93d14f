package config

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	DefaultAddr         = "localhost:4138"
	DefaultLogLevel     = "info"
	DefaultHomePage     = "home"
	DefaultNotFoundPage = "not_found"
	DefaultOutDir       = "dist"
)

type Config struct {
	Addr           string `mapstructure:"addr"`
	LogLevel       string `mapstructure:"logLevel"`
	HomePage       string `mapstructure:"homePage"`
	NotFoundPage   string `mapstructure:"notFoundPage"`
	NotFoundStatus bool   `mapstructure:"notFoundStatus"`
	Watch          bool   `mapstructure:"watch"`
	OutDir         string `mapstructure:"outDir"`
}

// Level parses LogLevel. An empty level means info.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
