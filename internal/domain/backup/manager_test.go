package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/pluginkit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Manager, string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "plugin")
	testutil.WriteTree(t, src, map[string]string{
		"admin/index.tsx":     "tsx",
		"api/index.ts":        "ts",
		"api/graphql/a.ts":    "a",
		"admin/manifest.json": "{}",
	})
	return NewManager(filepath.Join(t.TempDir(), "backups")), src
}

func TestManager_CreateAndDiscard(t *testing.T) {
	t.Parallel()

	m, src := setup(t)

	snap, err := m.Create(context.Background(), src)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, src, snap.Source)
	assert.Equal(t, 4, snap.Files)
	assert.Equal(t, filepath.Base(src), filepath.Base(snap.Location))
	assert.Equal(t, testutil.ReadTree(t, src), testutil.ReadTree(t, snap.Location))

	require.NoError(t, m.Discard(context.Background(), snap))
	testutil.AssertFileNotExists(t, snap.Location)
	testutil.AssertFileNotExists(t, filepath.Dir(snap.Location))
}

func TestManager_Restore(t *testing.T) {
	t.Parallel()

	m, src := setup(t)
	before := testutil.ReadTree(t, src)

	snap, err := m.Create(context.Background(), src)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(src, "api", "index.ts")))
	testutil.WriteTempFile(t, src, "api/index.js", "compiled")
	testutil.WriteTempFile(t, src, "admin/index.tsx", "mangled")

	require.NoError(t, m.Restore(context.Background(), snap))
	assert.Equal(t, before, testutil.ReadTree(t, src))
}

func TestManager_CreateMissingSource(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	_, err := m.Create(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestGuard_SuccessDiscards(t *testing.T) {
	t.Parallel()

	m, src := setup(t)

	err := m.Guard(context.Background(), src, func(context.Context) error {
		testutil.WriteTempFile(t, src, "api/index.js", "compiled")
		return nil
	})
	require.NoError(t, err)

	testutil.AssertFileExists(t, filepath.Join(src, "api", "index.js"))
	entries, err := os.ReadDir(m.baseDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGuard_ErrorRestores(t *testing.T) {
	t.Parallel()

	m, src := setup(t)
	before := testutil.ReadTree(t, src)
	boom := errors.New("tsc failed")

	err := m.Guard(context.Background(), src, func(context.Context) error {
		require.NoError(t, os.RemoveAll(filepath.Join(src, "admin")))
		testutil.WriteTempFile(t, src, "api/index.js", "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, testutil.ReadTree(t, src))

	entries, err := os.ReadDir(m.baseDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGuard_PanicRestores(t *testing.T) {
	t.Parallel()

	m, src := setup(t)
	before := testutil.ReadTree(t, src)

	assert.PanicsWithValue(t, "unexpected", func() {
		_ = m.Guard(context.Background(), src, func(context.Context) error {
			testutil.WriteTempFile(t, src, "admin/index.tsx", "half-written")
			panic("unexpected")
		})
	})

	assert.Equal(t, before, testutil.ReadTree(t, src))
}
