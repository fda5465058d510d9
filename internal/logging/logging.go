// Package logging builds the zerolog loggers shared by every component.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ComponentKey tags every line with the subsystem that emitted it.
const ComponentKey = "component"

// Config describes logger runtime configuration.
type Config struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	TimeFormat  string `mapstructure:"time_format"`
	Caller      bool   `mapstructure:"caller"`
	PrettyPrint bool   `mapstructure:"pretty"`
	NoColor     bool   `mapstructure:"no_color"`
	// Output defaults to stderr; stdout carries command output.
	Output io.Writer `mapstructure:"-"`
}

// ParseLevel maps a level name to a zerolog level. Empty or unknown names
// report ok=false.
func ParseLevel(name string) (zerolog.Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.InfoLevel, false
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, false
	}
	return level, true
}

// NewLogger constructs a zerolog logger from config. Unknown levels fall
// back to info.
func NewLogger(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}
	zerolog.DurationFieldUnit = time.Millisecond

	level, _ := ParseLevel(cfg.Level)

	builder := zerolog.New(logWriter(cfg)).Level(level).With().Timestamp()
	if cfg.Caller {
		builder = builder.Caller()
	}

	return builder.Logger()
}

// Component returns a child logger tagged with name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str(ComponentKey, name).Logger()
}

func logWriter(cfg Config) io.Writer {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !cfg.PrettyPrint && !strings.EqualFold(cfg.Format, "console") {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:           out,
		NoColor:       cfg.NoColor,
		TimeFormat:    zerolog.TimeFieldFormat,
		PartsOrder:    []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, ComponentKey, zerolog.MessageFieldName},
		FieldsExclude: []string{ComponentKey},
	}
}
