package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/praetorian-inc/gosek/pkg/types"
)

// DirectoryConfig configures a directory walk.
type DirectoryConfig struct {
	// Root is the starting path for enumeration.
	Root string

	// IncludeHidden includes hidden files/directories (starting with .).
	IncludeHidden bool

	// MaxFileSize skips files larger than this (0 = no limit).
	MaxFileSize int64

	// FollowSymlinks yields symlinked files instead of skipping them.
	FollowSymlinks bool

	// Logger receives warnings for entries that could not be read.
	Logger zerolog.Logger
}

// Directory walks a directory tree and yields FILE targets in lexical order.
// A .gitignore at the root is honoured. Unreadable entries below the root are
// logged and skipped.
type Directory struct {
	config DirectoryConfig
	fsys   fs.FS // nil means os.DirFS(Root)
	logger zerolog.Logger
}

// NewDirectory creates a directory source.
func NewDirectory(config DirectoryConfig) *Directory {
	return &Directory{
		config: config,
		logger: config.Logger.With().Str("component", "source").Str("root", config.Root).Logger(),
	}
}

// Enumerate walks the tree and yields one target per eligible file.
func (d *Directory) Enumerate(ctx context.Context, yield func(types.Target) error) error {
	root := d.config.Root
	fsys := d.fsys
	if fsys == nil {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			return yield(types.FileTarget(root))
		}
		fsys = os.DirFS(root)
	}

	// Load .gitignore patterns if present
	var ignore *gitignore.GitIgnore
	if data, err := fs.ReadFile(fsys, ".gitignore"); err == nil {
		ignore = gitignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)
	}

	return fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == "." {
				return fmt.Errorf("walk %s: %w", root, err)
			}
			d.logger.Warn().Err(err).Str("path", p).Msg("Skipping unreadable entry")
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if p != "." && !d.config.IncludeHidden && isHidden(entry.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		if !d.config.IncludeHidden && isHidden(entry.Name()) {
			return nil
		}

		var size int64
		if entry.Type()&fs.ModeSymlink != 0 {
			if !d.config.FollowSymlinks {
				return nil
			}
			target, err := fs.Stat(fsys, p)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
			size = target.Size()
		} else if !entry.Type().IsRegular() {
			return nil
		} else if d.config.MaxFileSize > 0 {
			info, err := entry.Info()
			if err != nil {
				d.logger.Warn().Err(err).Str("path", p).Msg("Skipping unreadable entry")
				return nil
			}
			size = info.Size()
		}

		if d.config.MaxFileSize > 0 && size > d.config.MaxFileSize {
			return nil
		}

		if ignore != nil && ignore.MatchesPath(p) {
			return nil
		}

		return yield(types.FileTarget(filepath.Join(root, filepath.FromSlash(p))))
	})
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
