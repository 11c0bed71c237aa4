package template

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/praetorian-inc/gosek/pkg/types"
	"github.com/rs/zerolog"
)

// maxZipEntrySize bounds a single extracted file.
const maxZipEntrySize = 64 << 20

// Downloader fetches a remote payload. *fetch.Fetcher satisfies it.
type Downloader interface {
	Fetch(ctx context.Context, t types.Target) types.FetchResult
}

// Method is how a template repository was installed.
type Method string

const (
	MethodGit Method = "git"
	MethodZip Method = "zip"
)

// InstallResult describes a finished install or update.
type InstallResult struct {
	Dir      string
	Method   Method
	Files    int  // template files present afterwards
	UpToDate bool // update found nothing new
}

// Installer installs and updates template repositories.
type Installer struct {
	downloader Downloader
	logger     zerolog.Logger
}

// NewInstaller creates an installer. downloader is used for remote zip
// archives; git sources are cloned directly.
func NewInstaller(downloader Downloader, logger zerolog.Logger) *Installer {
	return &Installer{
		downloader: downloader,
		logger:     logger.With().Str("component", "templates").Logger(),
	}
}

// Install places the templates from `from` (a git URL, a local git
// repository, or a .zip archive path or URL) into dir. A non-empty dir is
// replaced only when force is set.
func (i *Installer) Install(ctx context.Context, from, dir string, force bool) (*InstallResult, error) {
	if from == "" {
		return nil, errors.New("template source is required")
	}
	if err := prepareDir(dir, force); err != nil {
		return nil, err
	}

	method := MethodGit
	if isZipSource(from) {
		method = MethodZip
	}
	i.logger.Info().Str("from", from).Str("to", dir).Str("method", string(method)).Msg("Installing templates")

	var err error
	if method == MethodZip {
		err = i.installZip(ctx, from, dir)
	} else {
		_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:          from,
			Depth:        1,
			SingleBranch: true,
		})
		if err != nil {
			err = fmt.Errorf("clone %s: %w", from, err)
		}
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	return &InstallResult{Dir: dir, Method: method, Files: countTemplateFiles(dir)}, nil
}

// Update pulls the latest templates into a git-installed dir.
func (i *Installer) Update(ctx context.Context, dir string) (*InstallResult, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s was not installed from git; reinstall with --force", dir)
		}
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}

	res := &InstallResult{Dir: dir, Method: MethodGit}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin", SingleBranch: true})
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		res.UpToDate = true
	case err != nil:
		return nil, fmt.Errorf("pull %s: %w", dir, err)
	}

	res.Files = countTemplateFiles(dir)
	i.logger.Info().Str("dir", dir).Bool("up_to_date", res.UpToDate).Msg("Templates updated")
	return res, nil
}

func (i *Installer) installZip(ctx context.Context, from, dir string) error {
	var data []byte
	if u, err := url.Parse(from); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if i.downloader == nil {
			return errors.New("no downloader configured for remote archives")
		}
		res := i.downloader.Fetch(ctx, types.URLTarget(from))
		if res.Err != nil {
			return res.Err
		}
		data = res.Payload
	} else {
		data, err = os.ReadFile(from)
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
	}

	n, err := extractZip(data, dir)
	if err != nil {
		return err
	}
	i.logger.Debug().Int("entries", n).Msg("Archive extracted")
	return nil
}

// isZipSource reports whether from names a zip archive rather than a git
// repository.
func isZipSource(from string) bool {
	p := from
	if u, err := url.Parse(from); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
	}
	return strings.EqualFold(filepath.Ext(p), ".zip")
}

func prepareDir(dir string, force bool) error {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read %s: %w", dir, err)
	case len(entries) > 0 && !force:
		return fmt.Errorf("%s already exists and is not empty (use --force to replace it)", dir)
	case len(entries) > 0:
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}
	return os.MkdirAll(dir, 0o755)
}

// extractZip writes every entry of the archive under dest. When all
// entries share one top-level directory (as forge archives do) it is
// stripped. Entries that would land outside dest are rejected.
func extractZip(data []byte, dest string) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}

	prefix := commonRoot(zr.File)
	dest = filepath.Clean(dest)
	n := 0
	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(name))
		if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
			return n, fmt.Errorf("archive entry %q escapes destination", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return n, err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return n, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		n++
	}
	return n, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	written, err := io.Copy(out, io.LimitReader(rc, maxZipEntrySize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if written > maxZipEntrySize {
		return fmt.Errorf("entry exceeds %d bytes", maxZipEntrySize)
	}
	return nil
}

// commonRoot returns "dir/" when every entry lives under the same top-level
// directory, else "".
func commonRoot(files []*zip.File) string {
	var root string
	for _, f := range files {
		first, _, nested := strings.Cut(f.Name, "/")
		if !nested {
			return ""
		}
		if root == "" {
			root = first
		} else if root != first {
			return ""
		}
	}
	if root == "" {
		return ""
	}
	return root + "/"
}

func countTemplateFiles(dir string) int {
	files, err := List(dir)
	if err != nil {
		return 0
	}
	return len(files)
}
