package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/codedoc/internal/core/analyzer"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollector_CollectSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.js", "function main() {}\n")
	writeFile(t, dir, "lib/util.py", "def helper():\n    pass\n")
	writeFile(t, dir, "README.md", "# readme\n")
	writeFile(t, dir, "notes.txt", "plain text\n")

	c := NewCollector(0)
	files, err := c.Collect(dir)
	require.NoError(t, err)

	names := make(map[string]analyzer.Language, len(files))
	for _, f := range files {
		names[f.Name] = f.Language
	}

	// 対応言語のソースファイルのみ収集される
	assert.Equal(t, analyzer.LanguageJavaScript, names["index.js"])
	assert.Equal(t, analyzer.LanguagePython, names["lib/util.py"])
	assert.NotContains(t, names, "README.md")
	assert.NotContains(t, names, "notes.txt")
}

func TestCollector_SkipsGitDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, dir, ".git/hooks/sample.py", "def hook():\n    pass\n")

	c := NewCollector(0)
	files, err := c.Collect(dir)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Name)
}

func TestCollector_RespectsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "dist/\nsecret.js\n")
	writeFile(t, dir, "app.js", "function app() {}\n")
	writeFile(t, dir, "secret.js", "function secret() {}\n")
	writeFile(t, dir, "dist/bundle.js", "function bundled() {}\n")

	c := NewCollector(0)
	files, err := c.Collect(dir)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "app.js", files[0].Name)
}

func TestCollector_SkipsVendoredPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "function app() {}\n")
	writeFile(t, dir, "node_modules/dep/index.js", "function dep() {}\n")

	c := NewCollector(0)
	files, err := c.Collect(dir)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "app.js", files[0].Name)
}

func TestCollector_SkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.js", "")
	writeFile(t, dir, "app.js", "function app() {}\n")

	c := NewCollector(0)
	files, err := c.Collect(dir)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "app.js", files[0].Name)
}

func TestCollector_MaxFilesCap(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, dir, string(rune('a'+i))+".js", "function f() {}\n")
	}

	c := NewCollector(3)
	files, err := c.Collect(dir)
	require.NoError(t, err)

	assert.Len(t, files, 3)
}

func TestNewCollector_DefaultMax(t *testing.T) {
	c := NewCollector(0)
	assert.Equal(t, DefaultMaxFiles, c.maxFiles)

	c = NewCollector(-1)
	assert.Equal(t, DefaultMaxFiles, c.maxFiles)
}
