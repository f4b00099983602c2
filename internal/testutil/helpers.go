// Package testutil provides test helpers for pluginkit tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTempFile writes content to dir/rel, creating parent directories. rel
// uses forward slashes.
func WriteTempFile(t testing.TB, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create parent of %s", rel)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "failed to write temp file: %s", rel)

	return path
}

// WriteTempDir creates a subdirectory in dir.
func WriteTempDir(t testing.TB, dir, rel string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(path, 0o755), "failed to create temp subdirectory: %s", rel)

	return path
}

// WriteTree writes every rel → content pair under dir.
func WriteTree(t testing.TB, dir string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		WriteTempFile(t, dir, rel, content)
	}
}

// ReadTree returns every regular file under dir keyed by slash-separated
// relative path.
func ReadTree(t testing.TB, dir string) map[string]string {
	t.Helper()

	out := make(map[string]string)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)

	return out
}

// SetEnv sets an environment variable for the duration of the test.
func SetEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

// UnsetEnv unsets an environment variable for the duration of the test.
func UnsetEnv(t *testing.T, key string) {
	t.Helper()

	// Setenv registers the restore; the unset happens after it.
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

// ChangeDir changes to a directory for the duration of the test.
func ChangeDir(t *testing.T, dir string) {
	t.Helper()

	original, err := os.Getwd()
	require.NoError(t, err)

	require.NoError(t, os.Chdir(dir))

	t.Cleanup(func() {
		_ = os.Chdir(original)
	})
}
