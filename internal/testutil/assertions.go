package testutil

import (
	"archive/zip"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertFileExists asserts that a regular file exists at the given path.
func AssertFileExists(t testing.TB, path string, msgAndArgs ...interface{}) {
	t.Helper()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		assert.Fail(t, "file does not exist", append([]interface{}{"expected file to exist: %s", path}, msgAndArgs...)...)
		return
	}
	require.NoError(t, err, msgAndArgs...)
	assert.False(t, info.IsDir(), "expected file but found directory: %s", path)
}

// AssertFileNotExists asserts that nothing exists at the given path.
func AssertFileNotExists(t testing.TB, path string, msgAndArgs ...interface{}) {
	t.Helper()

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), append([]interface{}{"expected path to not exist: %s", path}, msgAndArgs...)...)
}

// AssertDirExists asserts that a directory exists at the given path.
func AssertDirExists(t testing.TB, path string, msgAndArgs ...interface{}) {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err, msgAndArgs...)
	assert.True(t, info.IsDir(), "expected directory: %s", path)
}

// AssertFileContains asserts that a file contains the expected substring.
func AssertFileContains(t testing.TB, path, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, msgAndArgs...)
	assert.Contains(t, string(content), expected, msgAndArgs...)
}

// ZipEntries returns the sorted entry names of a zip archive.
func ZipEntries(t testing.TB, path string) []string {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// AssertZipEntriesUseSlashes asserts no entry name contains a backslash.
func AssertZipEntriesUseSlashes(t testing.TB, entries []string) {
	t.Helper()

	for _, e := range entries {
		assert.False(t, strings.Contains(e, `\`), "entry %q contains a backslash", e)
	}
}
