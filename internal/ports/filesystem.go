package ports

import (
	"os"
)

// FileSystem provides the file system operations used by the scaffolder and
// the validators. Archive and backup code streams files directly.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Exists(path string) bool
	IsDir(path string) bool
	Remove(path string) error
	RemoveAll(path string) error
	Rename(oldPath, newPath string) error
}
