package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a configured zerolog logger plus the resources it holds.
type Logger struct {
	zerolog.Logger
	file *lumberjack.Logger
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// New builds a logger writing to console (normally os.Stderr) and, when
// cfg.File is set, to a rotating file. The file always gets uncoloured
// output.
func New(cfg Config, console io.Writer) (*Logger, error) {
	if cfg.MaxSizeMB < 0 || cfg.MaxBackups < 0 {
		return nil, errors.New("log rotation limits must not be negative")
	}
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{strategyFor(cfg.Format, cfg.NoColor).CreateWriter(console)}

	var file *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		maxSize := cfg.MaxSizeMB
		if maxSize == 0 {
			maxSize = DefaultMaxSizeMB
		}
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		}
		writers = append(writers, strategyFor(cfg.Format, true).CreateWriter(file))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: zl, file: file}, nil
}

// Component returns a child logger tagged with a component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
