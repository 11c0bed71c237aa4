// Package template loads detection templates from JSON, YAML and TOML files,
// from the embedded builtin set, and from installed template repositories.
package template

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/gosek/pkg/types"
)

// Loader handles loading templates from files and the builtin set.
type Loader struct {
	fs fs.FS // embedded filesystem for built-in templates
}

// NewLoader creates a loader with built-in templates from embedded filesystem.
func NewLoader() *Loader {
	return &Loader{
		fs: builtinFS,
	}
}

// NewLoaderWithFS creates a loader with a custom builtin filesystem.
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{
		fs: fsys,
	}
}

// LoadOptions selects what Load reads.
type LoadOptions struct {
	// Paths are template directories or single files, loaded in order.
	Paths []string
	// NoBuiltin skips the embedded templates.
	NoBuiltin bool
	// Filter narrows the result by template name or ID.
	Filter FilterConfig
}

// Load returns builtin templates (unless disabled) followed by the templates
// under each path, then applies the filter. Because later templates override
// earlier ones by name, user templates override builtins.
func (l *Loader) Load(opts LoadOptions) ([]types.Template, error) {
	var out []types.Template

	if !opts.NoBuiltin {
		builtin, err := l.LoadBuiltin()
		if err != nil {
			return nil, err
		}
		out = append(out, builtin...)
	}

	for _, p := range opts.Paths {
		templates, err := LoadPath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, templates...)
	}

	out, err := Filter(out, opts.Filter)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &types.ConfigError{Err: fmt.Errorf("no templates selected")}
	}
	return out, nil
}

// LoadBuiltin loads all built-in templates from the embedded filesystem.
func (l *Loader) LoadBuiltin() ([]types.Template, error) {
	templates, err := LoadFS(l.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("builtin templates: %w", err)
	}
	for i := range templates {
		templates[i].Source = "builtin:" + strings.TrimPrefix(templates[i].Source, "builtin/")
	}
	return templates, nil
}

// LoadPath loads a single template file, or every template file under a
// directory. A directory without any template files is an error.
func LoadPath(path string) ([]types.Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &types.ConfigError{Source: path, Err: fmt.Errorf("templates not found: %w", err)}
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &types.ConfigError{Source: path, Err: err}
		}
		return Parse(path, data)
	}

	templates, err := LoadFS(os.DirFS(path), ".")
	if err != nil {
		return nil, err
	}
	for i := range templates {
		templates[i].Source = filepath.Join(path, filepath.FromSlash(templates[i].Source))
	}
	return templates, nil
}

// LoadFS walks root in fsys recursively, in lexical order, and parses every
// .json, .yaml, .yml and .toml file. Hidden directories (such as .git) are
// skipped. Source is set to the slash path within fsys.
func LoadFS(fsys fs.FS, root string) ([]types.Template, error) {
	var templates []types.Template
	files := 0

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && isHidden(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if FormatOf(p) == "" {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		parsed, err := Parse(p, data)
		if err != nil {
			return err
		}
		files++
		templates = append(templates, parsed...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if files == 0 {
		return nil, &types.ConfigError{Source: root, Err: fmt.Errorf("no template files found")}
	}
	return templates, nil
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}
