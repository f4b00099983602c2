// Package watch rebuilds a plugin whenever files under its directory change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/pluginkit/internal/adapters/logging"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// DefaultDebounce is the quiet period after the last change before a build.
const DefaultDebounce = 300 * time.Millisecond

// BuildFunc rebuilds the watched plugin.
type BuildFunc func(ctx context.Context) error

// IgnoreFunc reports whether a changed path, relative to the watched root,
// is irrelevant.
type IgnoreFunc func(path string) bool

var ignoredDirs = map[string]bool{
	"node_modules":     true,
	".git":             true,
	".pluginkit-build": true,
}

var ignoredSuffixes = []string{"~", ".swp", ".swx", ".tmp", ".DS_Store", "Thumbs.db", ".zip", ".sig"}

// DefaultIgnore skips dependency and VCS directories, editor swap files,
// temporary files, archives and OS junk. path is relative to the watched
// root.
func DefaultIgnore(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if ignoredDirs[part] {
			return true
		}
	}
	base := filepath.Base(path)
	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// Watcher runs a build on start and after every burst of changes. Builds
// never overlap.
type Watcher struct {
	root     string
	build    BuildFunc
	debounce time.Duration
	ignore   IgnoreFunc
	onBuild  func(err error)
	logger   ports.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore replaces the ignore filter.
func WithIgnore(fn IgnoreFunc) Option {
	return func(w *Watcher) {
		w.ignore = fn
	}
}

// WithOnBuild sets a callback invoked after every build.
func WithOnBuild(fn func(err error)) Option {
	return func(w *Watcher) {
		w.onBuild = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(w *Watcher) {
		w.logger = logging.OrNop(logger)
	}
}

// New creates a watcher for the directory tree at root.
func New(root string, build BuildFunc, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		build:    build,
		debounce: DefaultDebounce,
		ignore:   DefaultIgnore,
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run builds once, then watches until ctx is canceled. Build failures are
// logged and reported to the callback; they do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if st, err := os.Stat(w.root); err != nil {
		return fmt.Errorf("watch root: %w", err)
	} else if !st.IsDir() {
		return fmt.Errorf("watch root %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	w.logger.Info(ctx, "watching for changes", ports.F("dir", w.root))

	w.runBuild(ctx)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if err := w.addTree(fsw, event.Name); err != nil {
					w.logger.Warn(ctx, "could not watch new directory",
						ports.F("path", event.Name),
						ports.F("error", err))
				}
			}
			w.logger.Debug(ctx, "change detected",
				ports.F("path", event.Name),
				ports.F("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watcher error", ports.F("error", err))

		case <-timer.C:
			w.runBuild(ctx)
		}
	}
}

func (w *Watcher) runBuild(ctx context.Context) {
	start := time.Now()
	err := w.build(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error(ctx, "build failed", ports.F("error", err))
	} else if err == nil {
		w.logger.Info(ctx, "build finished", ports.F("duration", time.Since(start).Round(time.Millisecond)))
	}
	if w.onBuild != nil {
		w.onBuild(err)
	}
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	return w.ignore(rel)
}

// addTree watches dir and every directory below it. Non-directories are
// ignored.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
