// Package logging builds the zerolog loggers used across gosek: a console
// writer on stderr and an optional rotating log file.
package logging

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Default log settings
const (
	DefaultLevel      = "info"
	DefaultFormat     = "console"
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 3
)

// Format represents available log formats
type Format int

const (
	FormatConsole Format = iota
	FormatJSON
	FormatText
)

// String returns string representation of Format
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatText:
		return "text"
	default:
		return "console"
	}
}

// ParseFormat parses a format name. An empty name is the console format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "console":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatConsole, fmt.Errorf("unknown log format %q (want console, json or text)", s)
	}
}

// ParseLevel parses string log level to zerolog.Level
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level: %w", err)
	}
	return level, nil
}

// Config holds configuration for logger setup
type Config struct {
	Level      zerolog.Level
	Format     Format
	File       string // rotating log file; empty disables file logging
	MaxSizeMB  int
	MaxBackups int
	NoColor    bool
}

// DefaultConfig returns default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:      zerolog.InfoLevel,
		Format:     FormatConsole,
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
	}
}
