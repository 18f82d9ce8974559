package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Output formats accepted by Initialize
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Initialize sets up the global logger
func Initialize(level, format string) error {
	return InitializeWithWriter(os.Stdout, level, format)
}

// InitializeWithWriter sets up the global logger writing to out
func InitializeWithWriter(out io.Writer, level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var output io.Writer
	switch strings.ToLower(format) {
	case "", FormatConsole:
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case FormatJSON:
		output = out
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}

	log.Logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// ParseLevel converts a level name to a zerolog level, defaulting to info
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
	return lvl, nil
}

// Get returns the global logger
func Get() *zerolog.Logger {
	return &log.Logger
}
