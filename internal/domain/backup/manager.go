package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/pluginkit/internal/adapters/logging"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// ErrSourceMissing is returned when the directory to snapshot does not exist.
var ErrSourceMissing = errors.New("backup source does not exist")

// Manager creates, restores and discards directory snapshots.
type Manager struct {
	baseDir string
	logger  ports.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(m *Manager) {
		m.logger = logging.OrNop(logger)
	}
}

// NewManager creates a manager that stores snapshots under baseDir. An empty
// baseDir uses the system temp directory.
func NewManager(baseDir string, opts ...Option) *Manager {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "pluginkit-backups")
	}
	m := &Manager{
		baseDir: baseDir,
		logger:  logging.NewNopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create copies source into a new snapshot.
func (m *Manager) Create(ctx context.Context, source string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := os.Stat(source)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", source, ErrSourceMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", source, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", source)
	}

	if err := os.MkdirAll(m.baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	snap := newSnapshot(source, m.baseDir, m.now())

	files, size, err := copyTree(ctx, source, snap.Location)
	if err != nil {
		_ = os.RemoveAll(snap.root)
		return nil, fmt.Errorf("snapshotting %s: %w", source, err)
	}
	snap.Files = files
	snap.Bytes = size

	m.logger.Debug(ctx, "snapshot created",
		ports.F("id", snap.ID),
		ports.F("source", source),
		ports.F("files", files))

	return &snap, nil
}

// Restore replaces the snapshot's source directory with the snapshot copy.
// The snapshot itself is kept.
func (m *Manager) Restore(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(snap.Source); err != nil {
		return fmt.Errorf("clearing %s: %w", snap.Source, err)
	}
	if _, _, err := copyTree(context.WithoutCancel(ctx), snap.Location, snap.Source); err != nil {
		return fmt.Errorf("restoring %s from snapshot %s: %w", snap.Source, snap.ID, err)
	}

	m.logger.Warn(ctx, "restored plugin directory from snapshot",
		ports.F("id", snap.ID),
		ports.F("source", snap.Source))
	return nil
}

// Discard deletes the snapshot copy.
func (m *Manager) Discard(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(snap.root); err != nil {
		return fmt.Errorf("discarding snapshot %s: %w", snap.ID, err)
	}
	m.logger.Debug(ctx, "snapshot discarded", ports.F("id", snap.ID))
	return nil
}

// Guard snapshots source, then runs fn. When fn succeeds the snapshot is
// discarded. When fn returns an error or panics, source is restored from the
// snapshot before the error is returned or the panic continues.
func (m *Manager) Guard(ctx context.Context, source string, fn func(ctx context.Context) error) (err error) {
	snap, err := m.Create(ctx, source)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if rerr := m.Restore(ctx, snap); rerr != nil {
				m.logger.Error(ctx, "restore after panic failed", ports.F("error", rerr))
			}
			_ = m.Discard(ctx, snap)
			panic(r)
		}

		if err != nil {
			if rerr := m.Restore(ctx, snap); rerr != nil {
				err = errors.Join(err, rerr)
				m.logger.Error(ctx, "restore failed; snapshot kept",
					ports.F("id", snap.ID),
					ports.F("location", snap.Location))
				return
			}
		}

		if derr := m.Discard(ctx, snap); derr != nil {
			m.logger.Warn(ctx, "could not discard snapshot", ports.F("error", derr))
		}
	}()

	return fn(ctx)
}

// copyTree copies a directory tree, preserving file modes and symlinks.
func copyTree(ctx context.Context, src, dst string) (int, int64, error) {
	var files int
	var size int64

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			n, err := copyFile(path, target, info.Mode().Perm())
			if err != nil {
				return err
			}
			files++
			size += n
			return nil
		default:
			return nil
		}
	})

	return files, size, err
}

func copyFile(src, dst string, perm fs.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
