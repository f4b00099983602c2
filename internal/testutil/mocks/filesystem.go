package mocks

import (
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// FileSystem is a thread-safe in-memory test double for ports.FileSystem.
// Paths are used verbatim as keys.
type FileSystem struct {
	mu       sync.RWMutex
	files    map[string][]byte
	dirs     map[string]bool
	failures map[string]error
}

// NewFileSystem creates a new FileSystem mock.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files:    make(map[string][]byte),
		dirs:     make(map[string]bool),
		failures: make(map[string]error),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *FileSystem) AddFile(p string, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = []byte(content)
}

// AddDir adds a directory to the mock filesystem.
func (m *FileSystem) AddDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[p] = true
}

// FailOn makes every mutating operation on p return err.
func (m *FileSystem) FailOn(p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[p] = err
}

// Files returns the sorted paths of all files.
func (m *FileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ReadFile reads a file from the mock filesystem.
func (m *FileSystem) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if content, ok := m.files[p]; ok {
		return append([]byte(nil), content...), nil
	}
	return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
}

// WriteFile writes a file to the mock filesystem.
func (m *FileSystem) WriteFile(p string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[p]; err != nil {
		return &fs.PathError{Op: "write", Path: p, Err: err}
	}
	m.files[p] = append([]byte(nil), data...)
	return nil
}

// MkdirAll creates a directory in the mock filesystem.
func (m *FileSystem) MkdirAll(p string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[p]; err != nil {
		return &fs.PathError{Op: "mkdir", Path: p, Err: err}
	}
	m.dirs[p] = true
	return nil
}

// Exists checks if a file or directory exists in the mock filesystem.
func (m *FileSystem) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, isFile := m.files[p]
	return isFile || m.dirs[p]
}

// IsDir checks if a path is a directory in the mock filesystem.
func (m *FileSystem) IsDir(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirs[p]
}

// Remove removes a file or directory from the mock filesystem.
func (m *FileSystem) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[p]; err != nil {
		return &fs.PathError{Op: "remove", Path: p, Err: err}
	}
	delete(m.files, p)
	delete(m.dirs, p)
	return nil
}

// RemoveAll removes a path and everything below it.
func (m *FileSystem) RemoveAll(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[p]; err != nil {
		return &fs.PathError{Op: "remove", Path: p, Err: err}
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	for f := range m.files {
		if f == p || strings.HasPrefix(f, prefix) {
			delete(m.files, f)
		}
	}
	for d := range m.dirs {
		if d == p || strings.HasPrefix(d, prefix) {
			delete(m.dirs, d)
		}
	}
	return nil
}

// Rename renames a file in the mock filesystem.
func (m *FileSystem) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[oldPath]; err != nil {
		return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: err}
	}
	content, ok := m.files[oldPath]
	if !ok {
		return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: fs.ErrNotExist}
	}
	m.files[newPath] = content
	m.dirs[path.Dir(newPath)] = true
	delete(m.files, oldPath)
	return nil
}

var _ ports.FileSystem = (*FileSystem)(nil)
