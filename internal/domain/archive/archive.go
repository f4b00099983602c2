// Package archive builds distributable zip archives of plugins in
// development and production modes.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/pluginkit/internal/adapters/logging"
	"github.com/felixgeelhaar/pluginkit/internal/domain/plugin"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// DefaultOutputDir is where archives are written, relative to the working
// directory.
const DefaultOutputDir = "plugin-zips"

// classicLimit is the largest size or offset representable without zip64.
const classicLimit int64 = math.MaxUint32 - 1

// classicMaxEntries is the largest entry count representable without zip64.
const classicMaxEntries = math.MaxUint16 - 1

// Top-level files archived next to the modules when present.
var topLevelFiles = []string{"manifest.json", "README.md"}

// Sentinel errors for programmatic error handling.
var (
	// ErrZip64Required indicates a production archive would need zip64
	// extensions.
	ErrZip64Required = errors.New("archive requires zip64 extensions")
	// ErrUnknownMode indicates an unrecognized mode name.
	ErrUnknownMode = errors.New("unknown archive mode")
)

// Archiver writes plugin archives.
type Archiver struct {
	outputDir    string
	policy       Policy
	logger       ports.Logger
	classicLimit int64
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithOutputDir sets the output directory.
func WithOutputDir(dir string) Option {
	return func(a *Archiver) {
		if dir != "" {
			a.outputDir = dir
		}
	}
}

// WithPolicy sets the file policy.
func WithPolicy(p Policy) Option {
	return func(a *Archiver) {
		a.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(a *Archiver) {
		a.logger = logging.OrNop(logger)
	}
}

// NewArchiver creates an Archiver with DefaultOutputDir and DefaultPolicy.
func NewArchiver(opts ...Option) *Archiver {
	a := &Archiver{
		outputDir:    DefaultOutputDir,
		policy:       DefaultPolicy(),
		logger:       logging.NewNopLogger(),
		classicLimit: classicLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OutputDir returns the output directory.
func (a *Archiver) OutputDir() string {
	return a.outputDir
}

// ArchivePath returns the path CreateZip writes for info in mode.
func (a *Archiver) ArchivePath(info plugin.Info, mode Mode) string {
	return filepath.Join(a.outputDir, fmt.Sprintf("%s-%s.zip", info.ID(), mode.Suffix()))
}

// CreateZip archives the plugin's admin/ and api/ modules plus top-level
// manifest.json and README.md. The archive is written to a temporary file in
// the output directory and renamed into place once complete, so the returned
// path always names a whole archive.
func (a *Archiver) CreateZip(ctx context.Context, info plugin.Info, mode Mode) (string, error) {
	dest := a.ArchivePath(info, mode)

	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(a.outputDir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	stats, err := a.write(ctx, tmp, info, mode)
	if err != nil {
		return "", err
	}

	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("syncing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing archive: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("moving archive into place: %w", err)
	}
	committed = true

	a.logger.Info(ctx, "archive written",
		ports.F("plugin", info.Name),
		ports.F("mode", mode.String()),
		ports.F("path", dest),
		ports.F("entries", stats.entries),
		ports.F("bytes", stats.bytes))

	return dest, nil
}

type writeStats struct {
	entries int
	bytes   int64
}

// countingWriter tracks the archive offset.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (a *Archiver) write(ctx context.Context, out io.Writer, info plugin.Info, mode Mode) (writeStats, error) {
	var stats writeStats
	cw := &countingWriter{w: out}
	zw := zip.NewWriter(cw)

	add := func(src, name string, fi os.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if mode == Production {
			if fi.Size() > a.classicLimit || cw.n > a.classicLimit {
				return fmt.Errorf("%s (%d bytes): %w", name, fi.Size(), ErrZip64Required)
			}
			if stats.entries >= classicMaxEntries {
				return fmt.Errorf("more than %d entries: %w", classicMaxEntries, ErrZip64Required)
			}
		}
		if err := addFileToZip(zw, src, name, fi); err != nil {
			return fmt.Errorf("adding %s: %w", name, err)
		}
		stats.entries++
		stats.bytes += fi.Size()
		return nil
	}

	for _, module := range info.Modules() {
		root := filepath.Join(info.Path, module)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && !a.policy.IncludeDir(d.Name(), mode) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				a.logger.Debug(ctx, "skipping non-regular file", ports.F("path", path))
				return nil
			}
			if !a.policy.IncludeFile(d.Name(), mode) {
				return nil
			}

			rel, err := filepath.Rel(info.Path, path)
			if err != nil {
				return err
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return add(path, filepath.ToSlash(rel), fi)
		})
		if err != nil {
			return stats, fmt.Errorf("archiving %s: %w", module, err)
		}
	}

	for _, name := range topLevelFiles {
		src := filepath.Join(info.Path, name)
		fi, err := os.Lstat(src)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if err := add(src, name, fi); err != nil {
			return stats, err
		}
	}

	if err := zw.Close(); err != nil {
		return stats, fmt.Errorf("finalizing archive: %w", err)
	}
	if mode == Production && cw.n > a.classicLimit {
		return stats, fmt.Errorf("archive is %d bytes: %w", cw.n, ErrZip64Required)
	}

	return stats, nil
}

func addFileToZip(w *zip.Writer, srcPath, zipPath string, info os.FileInfo) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = zipPath
	header.Method = zip.Deflate

	writer, err := w.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}

// ListEntries returns the entry names of a zip archive in archive order.
func ListEntries(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}
