// Package config loads the optional pluginkit.yaml or pluginkit.toml project
// configuration.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/domain/compiler"
	"github.com/felixgeelhaar/pluginkit/internal/domain/gate"
	"github.com/felixgeelhaar/pluginkit/internal/domain/scaffold"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
	"github.com/felixgeelhaar/pluginkit/internal/validation"
)

// DefaultPluginsRoot is where plugins live relative to the project root.
const DefaultPluginsRoot = "plugins"

// Config is the project configuration.
type Config struct {
	PluginsRoot string          `yaml:"plugins_root" toml:"plugins_root"`
	OutputDir   string          `yaml:"output_dir" toml:"output_dir"`
	Compiler    compiler.Config `yaml:"compiler" toml:"compiler"`
	Gate        gate.Config     `yaml:"gate" toml:"gate"`
	Archive     ArchiveConfig   `yaml:"archive" toml:"archive"`
	Scaffold    ScaffoldConfig  `yaml:"scaffold" toml:"scaffold"`
	Signing     SigningConfig   `yaml:"signing" toml:"signing"`
	Log         LogConfig       `yaml:"log" toml:"log"`

	path string
}

// ArchiveConfig extends the production archive policy.
type ArchiveConfig struct {
	ExtraExtensions []string `yaml:"extra_extensions" toml:"extra_extensions"`
}

// ScaffoldConfig sets manifest defaults for new plugins.
type ScaffoldConfig struct {
	Author      string `yaml:"author" toml:"author"`
	Description string `yaml:"description" toml:"description"`
}

// SigningConfig names the keys used by package --sign and verify.
type SigningConfig struct {
	Key         string `yaml:"key" toml:"key"`
	TrustedKeys string `yaml:"trusted_keys" toml:"trusted_keys"`
}

// LogConfig controls console logging.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		PluginsRoot: DefaultPluginsRoot,
		OutputDir:   archive.DefaultOutputDir,
		Compiler:    compiler.DefaultConfig(),
		Gate:        gate.DefaultConfig(),
		Scaffold: ScaffoldConfig{
			Author: scaffold.DefaultAuthor,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Path returns the file the configuration was loaded from, or "" for
// defaults.
func (c *Config) Path() string {
	return c.path
}

// Policy returns the archive policy with any extra extensions applied.
func (c *Config) Policy() archive.Policy {
	p := archive.DefaultPolicy()
	if len(c.Archive.ExtraExtensions) > 0 {
		p = p.WithExtensions(c.Archive.ExtraExtensions...)
	}
	return p
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() ports.Level {
	level, _ := ports.ParseLevel(c.Log.Level)
	return level
}

// Validate checks every field and returns an *ErrorList describing all
// problems, or nil.
func (c *Config) Validate() error {
	errs := NewErrorList()

	if strings.TrimSpace(c.PluginsRoot) == "" {
		errs.AddValidation("plugins_root", "must not be empty", fmt.Sprintf("Remove the key to use %q.", DefaultPluginsRoot))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs.AddValidation("output_dir", "must not be empty", fmt.Sprintf("Remove the key to use %q.", archive.DefaultOutputDir))
	}

	if c.Compiler.Command != "" {
		if err := validation.ValidateCommand(c.Compiler.Command); err != nil {
			errs.AddValidation("compiler.command", err.Error(), "Name a single executable such as npx or tsc; put arguments in compiler.args.")
		}
	}
	validateArgv(errs, "gate.platform_command", c.Gate.PlatformCommand)
	validateArgv(errs, "gate.plugin_command", c.Gate.PluginCommand)
	for _, dir := range c.Gate.TestDirs {
		if err := validation.ValidateRelativePath(dir); err != nil {
			errs.AddValidation("gate.test_dirs", err.Error(), "Test directories must be relative to the plugin directory.")
		}
	}

	for _, ext := range c.Archive.ExtraExtensions {
		if strings.TrimSpace(ext) == "" || strings.ContainsAny(ext, `/\*`) {
			errs.AddValidation("archive.extra_extensions", fmt.Sprintf("%q is not a file extension", ext), `Write plain extensions such as ".wasm".`)
		}
	}

	if _, ok := ports.ParseLevel(c.Log.Level); !ok {
		errs.AddValidation("log.level", fmt.Sprintf("unknown level %q", c.Log.Level), "Use one of: debug, info, warn, error.")
	}

	return errs.AsError()
}

func validateArgv(errs *ErrorList, field string, argv []string) {
	if len(argv) == 0 {
		return
	}
	if err := validation.ValidateCommand(argv[0]); err != nil {
		errs.AddValidation(field, err.Error(), "The first element must be an executable name.")
	}
	if slices.Contains(argv, "") {
		errs.AddValidation(field, "contains an empty argument", "Remove empty strings from the command.")
	}
}
