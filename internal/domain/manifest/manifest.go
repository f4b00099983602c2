// Package manifest loads and validates plugin manifests (manifest.json) and
// the extension points they declare.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the manifest file name at the plugin root and in each module.
const FileName = "manifest.json"

// maxManifestSize limits manifest file size (256KB).
const maxManifestSize int64 = 256 * 1024

// Manifest is the typed view of a manifest.json. Validation works on the raw
// decoded value so it can report type errors; Manifest is for consumers that
// only need well-formed fields.
type Manifest struct {
	Name            string                 `json:"name"`
	PluginID        string                 `json:"pluginId,omitempty"`
	Version         string                 `json:"version"`
	Description     string                 `json:"description"`
	Author          string                 `json:"author"`
	Main            string                 `json:"main,omitempty"`
	Icon            string                 `json:"icon,omitempty"`
	ExtensionPoints map[string][]Extension `json:"extensionPoints,omitempty"`
}

// Extension is a single entry registered at an extension point.
type Extension struct {
	Type              string `json:"type,omitempty"`
	Name              string `json:"name"`
	File              string `json:"file,omitempty"`
	BuilderDefinition string `json:"builderDefinition,omitempty"`
}

// ValidationResult is the outcome of a validation pass. Valid is true iff
// Errors is empty.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Merge combines two results, preserving message order.
func (r ValidationResult) Merge(other ValidationResult) ValidationResult {
	errs := make([]string, 0, len(r.Errors)+len(other.Errors))
	errs = append(errs, r.Errors...)
	errs = append(errs, other.Errors...)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Read reads a manifest file with a size limit.
func Read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}

	if info.Size() > maxManifestSize {
		return nil, &SizeError{Path: path, Size: info.Size(), Limit: maxManifestSize}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxManifestSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// LoadRaw reads and decodes a manifest into a generic JSON value, suitable
// for ValidateManifest.
func LoadRaw(path string) (any, error) {
	data, err := Read(path)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return v, nil
}

// Load reads and decodes a manifest into its typed form. Fields with the
// wrong JSON type fail decoding.
func Load(path string) (*Manifest, error) {
	data, err := Read(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &m, nil
}

// Locations returns the manifest paths of a plugin in priority order: the
// plugin root, then the admin module, then the API module.
func Locations(pluginDir string) []string {
	return []string{
		filepath.Join(pluginDir, FileName),
		filepath.Join(pluginDir, "admin", FileName),
		filepath.Join(pluginDir, "api", FileName),
	}
}

// ReadPluginID returns the first non-empty string pluginId found in the
// plugin's manifests, in Locations order. ok is false when none declares one.
// Unreadable or malformed manifests are skipped.
func ReadPluginID(pluginDir string) (id string, ok bool) {
	for _, path := range Locations(pluginDir) {
		raw, err := LoadRaw(path)
		if err != nil {
			continue
		}
		obj, isObj := raw.(map[string]any)
		if !isObj {
			continue
		}
		if s, isStr := obj["pluginId"].(string); isStr && s != "" {
			return s, true
		}
	}
	return "", false
}
