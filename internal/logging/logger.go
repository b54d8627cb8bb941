// Package logging provides structured logging for the control framework. It
// wraps log/slog with a yaml-configurable handler and a manager that hands
// out per-component loggers tagged with the component name.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config selects the log level, output format and destination.
type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // json, text
	Output     string `yaml:"output"`      // stdout, stderr, file
	OutputPath string `yaml:"output_path"` // file destination when output is "file"
	AddSource  bool   `yaml:"add_source"`
}

// Logger is a structured logger bound to one handler configuration.
type Logger struct {
	*slog.Logger
	config *Config
}

// NewLogger creates a logger from the given configuration. A nil config uses
// the defaults.
func NewLogger(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	handler, err := createHandler(config, parseLevel(config.Level))
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: slog.New(handler),
		config: config,
	}, nil
}

// DefaultConfig returns the default logging configuration: info-level text
// output to stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
		Output: "stdout",
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func createHandler(config *Config, level slog.Level) (slog.Handler, error) {
	var writer *os.File
	var err error

	switch strings.ToLower(config.Output) {
	case "stderr":
		writer = os.Stderr
	case "file":
		path := config.OutputPath
		if path == "" {
			path = "logs/control.log"
		}
		if err := os.MkdirAll("logs", 0755); err != nil {
			return nil, err
		}
		writer, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
	default:
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	if strings.ToLower(config.Format) == "json" {
		return slog.NewJSONHandler(writer, opts), nil
	}
	return slog.NewTextHandler(writer, opts), nil
}

// With returns a logger carrying the given extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
	}
}
