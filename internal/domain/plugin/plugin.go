// Package plugin probes plugin directories and discovers plugins under a
// plugins root.
package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/pluginkit/internal/domain/manifest"
)

// Module directory names. Their presence is the sole signal for whether a
// module is included in packaging and compilation.
const (
	AdminDir = "admin"
	APIDir   = "api"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrNotADirectory indicates the plugin path is not a directory.
	ErrNotADirectory = errors.New("plugin path is not a directory")
	// ErrNoModules indicates a plugin has neither an admin nor an api module.
	ErrNoModules = errors.New("plugin has no admin or api module")
)

// Info describes a plugin directory at packaging time. It is recomputed on
// every run and never persisted.
type Info struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	HasAdmin bool   `json:"hasAdmin"`
	HasAPI   bool   `json:"hasApi"`
}

// Modules returns the present module directory names in packaging order.
func (i Info) Modules() []string {
	var mods []string
	if i.HasAdmin {
		mods = append(mods, AdminDir)
	}
	if i.HasAPI {
		mods = append(mods, APIDir)
	}
	return mods
}

// ID returns the plugin identifier used for archive names: the first
// pluginId declared by the root, admin or api manifest, else the directory
// base name.
func (i Info) ID() string {
	if id, ok := manifest.ReadPluginID(i.Path); ok {
		return id
	}
	return filepath.Base(i.Path)
}

// String returns a short human-readable description.
func (i Info) String() string {
	return fmt.Sprintf("%s (admin=%t, api=%t)", i.Name, i.HasAdmin, i.HasAPI)
}

// Probe inspects path for admin/ and api/ subdirectories.
func Probe(path string) (Info, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Info{}, fmt.Errorf("resolving %s: %w", path, err)
	}

	st, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, &NotFoundError{Path: path}
		}
		return Info{}, fmt.Errorf("checking %s: %w", path, err)
	}
	if !st.IsDir() {
		return Info{}, fmt.Errorf("%s: %w", path, ErrNotADirectory)
	}

	return Info{
		Name:     filepath.Base(abs),
		Path:     abs,
		HasAdmin: isDir(filepath.Join(abs, AdminDir)),
		HasAPI:   isDir(filepath.Join(abs, APIDir)),
	}, nil
}

// RequireModules returns ErrNoModules when neither module is present.
func (i Info) RequireModules() error {
	if !i.HasAdmin && !i.HasAPI {
		return fmt.Errorf("%s: %w", i.Name, ErrNoModules)
	}
	return nil
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
