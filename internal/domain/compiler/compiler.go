// Package compiler replaces a plugin's TypeScript sources with compiled
// JavaScript before production packaging.
//
// Compilation runs inside a backup guard: the whole plugin directory is
// snapshotted first and restored if any module fails, so a failed build
// never leaves sources half deleted.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/felixgeelhaar/pluginkit/internal/adapters/logging"
	"github.com/felixgeelhaar/pluginkit/internal/domain/backup"
	"github.com/felixgeelhaar/pluginkit/internal/domain/plugin"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

// Config selects the compiler command. Args are followed by
// "--project <config>"; TranspileOnlyArgs are appended on the retry made when
// type checking is skipped.
type Config struct {
	Command           string   `yaml:"command" toml:"command"`
	Args              []string `yaml:"args" toml:"args"`
	TranspileOnlyArgs []string `yaml:"transpile_only_args" toml:"transpile_only_args"`
}

// DefaultConfig runs the TypeScript compiler through npx.
func DefaultConfig() Config {
	return Config{
		Command:           "npx",
		Args:              []string{"tsc"},
		TranspileOnlyArgs: []string{"--noCheck"},
	}
}

// Compiler compiles the modules of a plugin in place.
type Compiler struct {
	runner  ports.CommandRunner
	backups *backup.Manager
	config  Config
	logger  ports.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithConfig overrides the compiler command. Empty fields keep their
// defaults.
func WithConfig(cfg Config) Option {
	return func(c *Compiler) {
		if cfg.Command != "" {
			c.config.Command = cfg.Command
			c.config.Args = cfg.Args
		} else if len(cfg.Args) > 0 {
			c.config.Args = cfg.Args
		}
		if cfg.TranspileOnlyArgs != nil {
			c.config.TranspileOnlyArgs = cfg.TranspileOnlyArgs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(c *Compiler) {
		c.logger = logging.OrNop(logger)
	}
}

// NewCompiler creates a compiler that runs commands through runner and
// guards each build with a snapshot from backups.
func NewCompiler(runner ports.CommandRunner, backups *backup.Manager, opts ...Option) *Compiler {
	c := &Compiler{
		runner:  runner,
		backups: backups,
		config:  DefaultConfig(),
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective compiler configuration.
func (c *Compiler) Config() Config {
	return c.config
}

// Compile compiles every present module of the plugin. When skipTypeCheck is
// set a failed type check is retried transpile-only. On any failure the
// plugin directory is restored to its state before the call.
func (c *Compiler) Compile(ctx context.Context, info plugin.Info, skipTypeCheck bool) error {
	if err := info.RequireModules(); err != nil {
		return err
	}

	return c.backups.Guard(ctx, info.Path, func(ctx context.Context) error {
		for _, module := range info.Modules() {
			if err := c.compileModule(ctx, filepath.Join(info.Path, module), module, skipTypeCheck); err != nil {
				return err
			}
		}

		n, err := rewriteEntryPoints(info.Path, info.Modules())
		if err != nil {
			return fmt.Errorf("updating manifest entry points: %w", err)
		}
		if n > 0 {
			c.logger.Debug(ctx, "manifest entry points rewritten", ports.F("count", n))
		}
		return nil
	})
}

func (c *Compiler) compileModule(ctx context.Context, dir, module string, skipTypeCheck bool) error {
	sources, err := collectSources(dir)
	if err != nil {
		return fmt.Errorf("scanning %s sources: %w", module, err)
	}
	if len(sources) == 0 {
		c.logger.Debug(ctx, "no TypeScript sources, skipping", ports.F("module", module))
		return nil
	}

	if _, err := writeBuildConfig(dir); err != nil {
		return fmt.Errorf("writing %s build config: %w", module, err)
	}
	defer func() {
		_ = os.Remove(filepath.Join(dir, BuildConfigName))
		_ = os.RemoveAll(filepath.Join(dir, BuildDirName))
	}()

	c.logger.Info(ctx, "compiling module",
		ports.F("module", module),
		ports.F("sources", len(sources)))

	args := append(slices.Clone(c.config.Args), "--project", BuildConfigName)
	res, err := c.run(ctx, dir, args)
	if err != nil {
		return err
	}

	if !res.Success() {
		if !skipTypeCheck {
			return &Error{
				Module:     module,
				ExitCode:   res.ExitCode,
				Output:     res.Output(),
				Suggestion: "fix the reported errors or package with --skip-type-check",
			}
		}

		c.logger.Warn(ctx, "type check failed, retrying without it",
			ports.F("module", module),
			ports.F("exit_code", res.ExitCode))

		// Output of the failed attempt must not leak into the retry.
		_ = os.RemoveAll(filepath.Join(dir, BuildDirName))

		res, err = c.run(ctx, dir, append(args, c.config.TranspileOnlyArgs...))
		if err != nil {
			return err
		}
		if !res.Success() {
			return &Error{
				Module:     module,
				ExitCode:   res.ExitCode,
				Output:     res.Output(),
				Suggestion: "the sources do not transpile; fix the syntax errors",
			}
		}
	}

	if err := replaceSources(dir, sources); err != nil {
		return fmt.Errorf("installing %s build output: %w", module, err)
	}

	c.logger.Info(ctx, "module compiled", ports.F("module", module))
	return nil
}

func (c *Compiler) run(ctx context.Context, dir string, args []string) (ports.CommandResult, error) {
	res, err := c.runner.Run(ctx, dir, c.config.Command, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, fmt.Errorf("%w: %s: %w", ErrCompilerUnavailable, c.config.Command, err)
	}
	return res, nil
}

// collectSources returns the TypeScript files compiled away, excluding
// declarations, tests and dependencies.
func collectSources(dir string) ([]string, error) {
	var sources []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case "node_modules", BuildDirName, "__tests__":
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsSource(d.Name()) {
			sources = append(sources, path)
		}
		return nil
	})
	return sources, err
}

// IsSource reports whether name is a TypeScript source file replaced by
// compilation. Declaration files and tests are kept.
func IsSource(name string) bool {
	if strings.HasSuffix(name, ".d.ts") || strings.Contains(name, ".test.") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".ts" || ext == ".tsx"
}

// replaceSources deletes sources and moves the build output into dir.
func replaceSources(dir string, sources []string) error {
	buildDir := filepath.Join(dir, BuildDirName)
	if st, err := os.Stat(buildDir); err != nil || !st.IsDir() {
		return errors.New("compiler produced no output")
	}

	for _, src := range sources {
		if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return filepath.WalkDir(buildDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(buildDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.Rename(path, target)
	})
}
