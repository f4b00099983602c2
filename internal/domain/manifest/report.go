package manifest

import (
	"context"
	"path/filepath"
)

// FileReport is the validation outcome for one manifest file.
type FileReport struct {
	// Path is the manifest path relative to the plugin directory.
	Path   string           `json:"path"`
	Result ValidationResult `json:"result"`
}

// Report aggregates the validation of every manifest in a plugin.
type Report struct {
	PluginDir string       `json:"pluginDir"`
	Files     []FileReport `json:"files"`
}

// Valid returns true if every manifest validated cleanly.
func (r *Report) Valid() bool {
	for _, f := range r.Files {
		if !f.Result.Valid {
			return false
		}
	}
	return true
}

// Errors returns all messages prefixed with their manifest path.
func (r *Report) Errors() []string {
	var errs []string
	for _, f := range r.Files {
		for _, msg := range f.Result.Errors {
			errs = append(errs, f.Path+": "+msg)
		}
	}
	return errs
}

// Err returns a ValidationError describing every failure, or nil.
func (r *Report) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Errors: r.Errors()}
}

// ValidatePlugin validates every manifest present in pluginDir (root, admin,
// api): field rules first, then extension points resolved against the plugin
// root. Returns ErrNoManifest when none exist. Undecodable manifests are
// reported as a single message rather than an error.
func ValidatePlugin(ctx context.Context, pluginDir string) (*Report, error) {
	report := &Report{PluginDir: pluginDir}

	for _, path := range Locations(pluginDir) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rel, err := filepath.Rel(pluginDir, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		raw, err := LoadRaw(path)
		switch {
		case IsNotFound(err):
			continue
		case IsParseError(err), IsSizeError(err):
			report.Files = append(report.Files, FileReport{
				Path:   rel,
				Result: ValidationResult{Valid: false, Errors: []string{err.Error()}},
			})
			continue
		case err != nil:
			return nil, err
		}

		result := ValidateManifest(raw).Merge(ValidateExtensionPoints(ctx, raw, pluginDir))
		report.Files = append(report.Files, FileReport{Path: rel, Result: result})
	}

	if len(report.Files) == 0 {
		return nil, ErrNoManifest
	}
	return report, nil
}
