// Package scaffold generates the on-disk skeleton of a new plugin: an admin
// UI module, an API module and a top-level README.
package scaffold

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/pluginkit/internal/adapters/logging"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
	"github.com/felixgeelhaar/pluginkit/internal/templates"
	"github.com/felixgeelhaar/pluginkit/internal/validation"
)

// Defaults written into generated manifests.
const (
	DefaultVersion     = "0.1.0"
	DefaultAuthor      = "Plugin Author"
	defaultDescription = "%s plugin"
)

// Template sets.
const (
	setAdmin  = "admin"
	setAPI    = "api"
	setPlugin = "plugin"
)

// Modules selects which modules CreatePlugin generates.
type Modules struct {
	Admin bool
	API   bool
}

// Any returns true if at least one module is selected.
func (m Modules) Any() bool {
	return m.Admin || m.API
}

// Result lists what CreatePlugin wrote.
type Result struct {
	Dir   string
	Files []string
}

// Generator writes plugin skeletons through a FileSystem.
type Generator struct {
	fs          ports.FileSystem
	logger      ports.Logger
	author      string
	description string
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(g *Generator) {
		g.logger = logging.OrNop(logger)
	}
}

// WithAuthor sets the author written into generated manifests.
func WithAuthor(author string) Option {
	return func(g *Generator) {
		if author != "" {
			g.author = author
		}
	}
}

// WithDescription sets the description written into generated manifests.
func WithDescription(description string) Option {
	return func(g *Generator) {
		g.description = description
	}
}

// NewGenerator creates a Generator.
func NewGenerator(fs ports.FileSystem, opts ...Option) *Generator {
	g := &Generator{
		fs:     fs,
		logger: logging.NewNopLogger(),
		author: DefaultAuthor,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateAdminSkeleton writes pluginsRoot/name/admin. Existing files with the
// same paths are overwritten. File system errors are returned wrapped; files
// already written are left in place.
func (g *Generator) CreateAdminSkeleton(name, pluginsRoot string) error {
	_, err := g.writeSet(setAdmin, name, filepath.Join(pluginsRoot, name, setAdmin))
	return err
}

// CreateAPISkeleton writes pluginsRoot/name/api with the same semantics as
// CreateAdminSkeleton.
func (g *Generator) CreateAPISkeleton(name, pluginsRoot string) error {
	_, err := g.writeSet(setAPI, name, filepath.Join(pluginsRoot, name, setAPI))
	return err
}

// CreatePlugin writes the selected modules plus a top-level README.
func (g *Generator) CreatePlugin(ctx context.Context, name, pluginsRoot string, modules Modules) (*Result, error) {
	if !modules.Any() {
		return nil, fmt.Errorf("no modules selected for %s", name)
	}

	dir := filepath.Join(pluginsRoot, name)
	result := &Result{Dir: dir}

	sets := []string{setPlugin}
	if modules.Admin {
		sets = append(sets, setAdmin)
	}
	if modules.API {
		sets = append(sets, setAPI)
	}

	for _, set := range sets {
		target := dir
		if set != setPlugin {
			target = filepath.Join(dir, set)
		}
		files, err := g.writeSet(set, name, target)
		result.Files = append(result.Files, files...)
		if err != nil {
			return result, err
		}
	}

	g.logger.Info(ctx, "plugin scaffolded",
		ports.F("plugin", name),
		ports.F("dir", dir),
		ports.F("files", len(result.Files)))

	return result, nil
}

// TemplateData builds the template context for name.
func (g *Generator) TemplateData(name string) templates.Data {
	description := g.description
	if description == "" {
		description = fmt.Sprintf(defaultDescription, name)
	}
	return templates.Data{
		Name:        name,
		PascalName:  PascalCase(name),
		CamelName:   CamelCase(name),
		KebabName:   KebabCase(name),
		SnakeName:   SnakeCase(name),
		ConstName:   strings.ToUpper(SnakeCase(name)),
		Version:     DefaultVersion,
		Description: description,
		Author:      g.author,
	}
}

// OutputPath maps a template path to its path in the generated tree. The
// admin dashboard component carries the plugin's PascalCase name.
func OutputPath(set, tmpl string, data templates.Data) string {
	if set == setAdmin && tmpl == "components/Dashboard.tsx" {
		return "components/" + data.PascalName + "Dashboard.tsx"
	}
	return tmpl
}

func (g *Generator) writeSet(set, name, target string) ([]string, error) {
	if err := validation.ValidateScaffoldName(name); err != nil {
		return nil, err
	}

	names, err := templates.List(set)
	if err != nil {
		return nil, err
	}

	if err := g.fs.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", target, err)
	}

	data := g.TemplateData(name)
	written := make([]string, 0, len(names))
	for _, tmpl := range names {
		content, err := templates.Render(set, tmpl, data)
		if err != nil {
			return written, err
		}

		path := filepath.Join(target, filepath.FromSlash(OutputPath(set, tmpl, data)))
		if err := g.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := g.fs.WriteFile(path, content, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}

	return written, nil
}
