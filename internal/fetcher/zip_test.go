package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(dir, "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIPSingle(t *testing.T) {
	zipPath := createTestZIP(t, t.TempDir(), map[string]string{
		"Post_Adressdaten.csv":            "01;5\n",
		"__MACOSX/._Post_Adressdaten.csv": "junk",
	})

	destDir := t.TempDir()
	path, err := ExtractZIPSingle(zipPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "Post_Adressdaten.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "01;5\n", string(data))
}

func TestExtractZIPSingle_MultipleFiles(t *testing.T) {
	zipPath := createTestZIP(t, t.TempDir(), map[string]string{
		"a.csv": "a",
		"b.csv": "b",
	})

	_, err := ExtractZIPSingle(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly 1 file, got 2")
}

func TestExtractZIPSingle_ZipSlip(t *testing.T) {
	zipPath := createTestZIP(t, t.TempDir(), map[string]string{
		"../../evil.csv": "x",
	})

	_, err := ExtractZIPSingle(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZIPSingle_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := ExtractZIPSingle(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: open archive")
}

func TestExtractZIPSingle_OnlyDirectories(t *testing.T) {
	zipPath := createTestZIP(t, t.TempDir(), map[string]string{
		"dir1/": "",
		"dir2/": "",
	})

	_, err := ExtractZIPSingle(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly 1 file, got 0")
}

func TestExtractZIPSingle_FileInSubdirectory(t *testing.T) {
	zipPath := createTestZIP(t, t.TempDir(), map[string]string{
		"export/":                     "",
		"export/Post_Adressdaten.csv": "04;10;100\n",
	})

	destDir := t.TempDir()
	path, err := ExtractZIPSingle(zipPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "export", "Post_Adressdaten.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "04;10;100\n", string(data))
}
