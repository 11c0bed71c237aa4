package template

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/praetorian-inc/gosek/pkg/types"
)

// FileSummary describes one template file in a directory.
type FileSummary struct {
	Path      string
	Format    Format
	Templates int
	Err       error // parse error, if the file is broken
}

// List returns every template file under dir in lexical order. A file that
// fails to parse is listed with its error rather than aborting the listing.
func List(dir string) ([]FileSummary, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("templates not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsys := os.DirFS(dir)
	var out []FileSummary
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && isHidden(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		format := FormatOf(p)
		if format == "" {
			return nil
		}

		summary := FileSummary{Path: filepath.Join(dir, filepath.FromSlash(p)), Format: format}
		data, err := fs.ReadFile(fsys, p)
		if err == nil {
			var templates []types.Template
			templates, err = Parse(p, data)
			summary.Templates = len(templates)
		}
		summary.Err = err
		out = append(out, summary)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
