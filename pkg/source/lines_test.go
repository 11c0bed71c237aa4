package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLines_AutoMode(t *testing.T) {
	input := strings.Join([]string{
		"https://example.com/app.js",
		"",
		"   ",
		"HTTP://EXAMPLE.COM/upper",
		"./config/.env",
		"ftp://example.com/file",
		"http://",
		"bad\x01line",
		"  /etc/hosts  ",
	}, "\n")

	var logs bytes.Buffer
	src := NewLines(strings.NewReader(input), "stdin", ModeAuto, zerolog.New(&logs))

	assert.Equal(t, []types.Target{
		types.URLTarget("https://example.com/app.js"),
		types.URLTarget("HTTP://EXAMPLE.COM/upper"),
		types.FileTarget("./config/.env"),
		types.FileTarget("/etc/hosts"),
	}, collect(t, src))

	out := logs.String()
	assert.Equal(t, 3, strings.Count(out, "Skipping malformed input line"))
	assert.Contains(t, out, `unsupported scheme \"ftp\"`)
	assert.Contains(t, out, "unparsable URL")
	assert.Contains(t, out, "control character")
}

func TestLines_TextMode(t *testing.T) {
	src := NewLines(strings.NewReader("password=hunter2\n\nhttps://not-a-url-here\r\n"), "stdin", ModeText, zerolog.Nop())

	assert.Equal(t, []types.Target{
		types.TextTarget("password=hunter2"),
		types.TextTarget("https://not-a-url-here"),
	}, collect(t, src))
}

func TestLines_CancelledBetweenLines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := NewLines(strings.NewReader("a\nb\nc\n"), "stdin", ModeText, zerolog.Nop())

	var seen []types.Target
	err := src.Enumerate(ctx, func(t types.Target) error {
		seen = append(seen, t)
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, seen, 1)
}

func TestLines_OversizeLineSkipped(t *testing.T) {
	input := "secret-1\n" + strings.Repeat("x", 200) + "\nsecret-2\r\nsecret-3"

	var logs bytes.Buffer
	src := NewLines(strings.NewReader(input), "stdin", ModeText, zerolog.New(&logs))
	src.maxLine = 64

	assert.Equal(t, []types.Target{
		types.TextTarget("secret-1"),
		types.TextTarget("secret-2"),
		types.TextTarget("secret-3"),
	}, collect(t, src))
	assert.Equal(t, 1, strings.Count(logs.String(), "Skipping malformed input line"))
	assert.Contains(t, logs.String(), `"line":2`)
}

func TestLines_LineAtLimitKept(t *testing.T) {
	line := strings.Repeat("a", 64)
	src := NewLines(strings.NewReader(line+"\n"+line+"b\n"), "stdin", ModeText, zerolog.Nop())
	src.maxLine = 64

	assert.Equal(t, []types.Target{types.TextTarget(line)}, collect(t, src))
}

func TestLines_OversizeFinalLine(t *testing.T) {
	src := NewLines(strings.NewReader("ok\n"+strings.Repeat("y", 100)), "stdin", ModeText, zerolog.Nop())
	src.maxLine = 16

	assert.Equal(t, []types.Target{types.TextTarget("ok")}, collect(t, src))
}

func TestListFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://a.example/x.js\nsecrets.txt\n"), 0o644))

	got := collect(t, NewListFile(path, ModeAuto, zerolog.Nop()))
	assert.Equal(t, []types.Target{
		types.URLTarget("https://a.example/x.js"),
		types.FileTarget("secrets.txt"),
	}, got)
}

func TestListFile_Missing(t *testing.T) {
	src := NewListFile(filepath.Join(t.TempDir(), "nope.txt"), ModeAuto, zerolog.Nop())
	err := src.Enumerate(context.Background(), func(types.Target) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}
