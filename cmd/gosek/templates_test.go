package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/praetorian-inc/gosek/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func resetTemplatesOpts(t *testing.T, dir string) {
	t.Helper()
	savedOpts, savedDir, savedNoBuiltin, savedFormat := templatesOpts, templatesDir, templatesNoBuiltin, templatesFormat
	templatesOpts = config.Templates{To: dir}
	templatesDir = dir
	templatesNoBuiltin = false
	templatesFormat = "table"
	t.Cleanup(func() {
		templatesOpts, templatesDir, templatesNoBuiltin, templatesFormat = savedOpts, savedDir, savedNoBuiltin, savedFormat
	})
}

func TestRunTemplatesInstallAndList(t *testing.T) {
	tmpDir := t.TempDir()
	archive := filepath.Join(tmpDir, "templates.zip")
	writeZip(t, archive, map[string]string{
		"templates-main/aws.yml":    "- name: AWS Access Key ID\n  pattern: 'AKIA[A-Z0-9]{16}'\n",
		"templates-main/tokens.json": `[{"name": "Internal Token", "pattern": "itk_[a-z]{8}"}]`,
	})

	dest := filepath.Join(tmpDir, "installed")
	resetTemplatesOpts(t, dest)
	templatesOpts.From = archive

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, runTemplatesInstall(cmd, nil))
	assert.Contains(t, buf.String(), "Installed 2 template file(s)")
	assert.FileExists(t, filepath.Join(dest, "aws.yml"))

	buf.Reset()
	require.NoError(t, runTemplatesList(cmd, nil))
	output := buf.String()
	assert.Contains(t, output, "FILE")
	assert.Contains(t, output, "aws.yml")
	assert.Contains(t, output, "tokens.json")
	assert.Contains(t, output, "ok")
}

func TestRunTemplatesInstall_RequiresDestination(t *testing.T) {
	resetTemplatesOpts(t, "")
	templatesOpts.From = "templates.zip"

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	assert.Error(t, runTemplatesInstall(cmd, nil))
}

func TestRunTemplatesUpdate_NotGit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte("- name: A\n  pattern: a\n"), 0644))
	resetTemplatesOpts(t, dir)

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	err := runTemplatesUpdate(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reinstall with --force")
}

func TestRunTemplatesList_Empty(t *testing.T) {
	dir := t.TempDir()
	resetTemplatesOpts(t, dir)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, runTemplatesList(cmd, nil))
	assert.Contains(t, buf.String(), "No template files")
}

func TestRunTemplatesPatterns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "override.yml"), []byte(`- name: AWS Access Key ID
  id: custom.aws
  pattern: 'AKIA[A-Z0-9]{16}'
`), 0644))
	resetTemplatesOpts(t, dir)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, runTemplatesPatterns(cmd, nil))

	output := buf.String()
	assert.Contains(t, output, "custom.aws")
	assert.NotContains(t, output, "gosek.aws.1")
	assert.Contains(t, output, "gosek.slack.1")
	assert.Contains(t, output, "Total: 17 templates")
}

func TestRunTemplatesPatterns_JSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.toml"), []byte(`[[patterns]]
name = "Internal Token"
pattern = "itk_[a-z]{8}"
keywords = ["itk_"]
`), 0644))
	resetTemplatesOpts(t, dir)
	templatesNoBuiltin = true
	templatesFormat = "json"

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, runTemplatesPatterns(cmd, nil))

	var entries []patternEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Internal Token", entries[0].Name)
	assert.Equal(t, []string{"itk_"}, entries[0].Keywords)
	assert.Len(t, entries[0].ID, 40)
}

func TestRunTemplatesPatterns_UnknownFormat(t *testing.T) {
	resetTemplatesOpts(t, t.TempDir())
	templatesFormat = "xml"

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	assert.Error(t, runTemplatesPatterns(cmd, nil))
}
