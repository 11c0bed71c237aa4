package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"unicode"

	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
)

// maxLineSize bounds a single input line. Longer lines are skipped.
const maxLineSize = 16 * 1024 * 1024

// Mode selects how a line becomes a target.
type Mode int

const (
	// ModeAuto treats http:// and https:// lines as URLs and everything else
	// as file paths.
	ModeAuto Mode = iota
	// ModeText treats every line as inline text.
	ModeText
)

// Lines reads newline-separated targets from a stream such as stdin.
// Blank lines are skipped. Malformed lines are logged and skipped.
type Lines struct {
	r       io.Reader
	name    string
	mode    Mode
	maxLine int
	logger  zerolog.Logger
}

// NewLines creates a line source. name identifies the stream in log lines.
func NewLines(r io.Reader, name string, mode Mode, logger zerolog.Logger) *Lines {
	return &Lines{
		r:       r,
		name:    name,
		mode:    mode,
		maxLine: maxLineSize,
		logger:  logger.With().Str("component", "source").Str("input", name).Logger(),
	}
}

// Enumerate yields one target per usable line.
func (l *Lines) Enumerate(ctx context.Context, yield func(types.Target) error) error {
	reader := bufio.NewReaderSize(l.r, 64*1024)

	lineNo := 0
	for {
		line, tooLong, err := readLine(reader, l.maxLine)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read %s: %w", l.name, err)
		}
		if errors.Is(err, io.EOF) && line == "" && !tooLong {
			return nil
		}
		lineNo++
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if tooLong {
			l.logger.Warn().Int("line", lineNo).Str("reason", fmt.Sprintf("line longer than %d bytes", l.maxLine)).Msg("Skipping malformed input line")
		} else if t, ok, reason := parseLine(line, l.mode); ok {
			if yieldErr := yield(t); yieldErr != nil {
				return yieldErr
			}
		} else if reason != "" {
			l.logger.Warn().Int("line", lineNo).Str("reason", reason).Msg("Skipping malformed input line")
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// readLine reads up to the next newline. A line longer than limit is consumed
// and discarded, reported through tooLong. err is io.EOF on the final line.
func readLine(r *bufio.Reader, limit int) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, readErr := r.ReadSlice('\n')
		n := len(chunk)
		if n > 0 && chunk[n-1] == '\n' {
			n--
		}
		if !tooLong {
			if len(buf)+n > limit {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			return "", true, readErr
		}
		return strings.TrimRight(string(buf), "\r\n"), false, readErr
	}
}

// parseLine classifies one input line. A false ok with an empty reason is a
// blank line.
func parseLine(line string, mode Mode) (types.Target, bool, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return types.Target{}, false, ""
	}
	if strings.IndexFunc(line, isDisallowedControl) >= 0 {
		return types.Target{}, false, "control character in line"
	}

	if mode == ModeText {
		return types.TextTarget(line), true, ""
	}

	scheme, _, hasScheme := strings.Cut(line, "://")
	if !hasScheme {
		return types.FileTarget(line), true, ""
	}
	switch strings.ToLower(scheme) {
	case "http", "https":
		u, err := url.Parse(line)
		if err != nil || u.Host == "" {
			return types.Target{}, false, "unparsable URL"
		}
		return types.URLTarget(line), true, ""
	default:
		return types.Target{}, false, fmt.Sprintf("unsupported scheme %q", scheme)
	}
}

func isDisallowedControl(r rune) bool {
	return r != '\t' && unicode.IsControl(r)
}

// ListFile is a Lines source backed by a file that is opened on Enumerate.
type ListFile struct {
	path   string
	mode   Mode
	logger zerolog.Logger
}

// NewListFile creates a list-file source.
func NewListFile(path string, mode Mode, logger zerolog.Logger) *ListFile {
	return &ListFile{path: path, mode: mode, logger: logger}
}

// Enumerate opens the list file and yields its lines.
func (l *ListFile) Enumerate(ctx context.Context, yield func(types.Target) error) error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open list file: %w", err)
	}
	defer f.Close()

	return NewLines(f, l.path, l.mode, l.logger).Enumerate(ctx, yield)
}
