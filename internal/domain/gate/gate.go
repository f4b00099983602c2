// Package gate runs the platform test suite followed by a plugin's own tests
// before the plugin may be packaged.
package gate

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
	"github.com/felixgeelhaar/pluginkit/internal/domain/plugin"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
	"github.com/felixgeelhaar/pluginkit/internal/validation"
)

// Environment variables that skip missing plugin tests when truthy.
const (
	EnvSkipPluginTests       = "PLUGINKIT_SKIP_PLUGIN_TESTS"
	EnvSkipPluginTestsLegacy = "SKIP_PLUGIN_TESTS"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrNoPluginTests indicates the plugin has no test files and skipping
	// was not requested.
	ErrNoPluginTests = errors.New("no plugin tests found")
	// ErrEmptyCommand indicates a suite command is not configured.
	ErrEmptyCommand = errors.New("test command is empty")
)

// Config selects the suite commands and where plugin tests live.
type Config struct {
	PlatformCommand []string `yaml:"platform_command" toml:"platform_command"`
	PluginCommand   []string `yaml:"plugin_command" toml:"plugin_command"`
	TestDirs        []string `yaml:"test_dirs" toml:"test_dirs"`
}

// DefaultConfig runs npm test for the platform and jest for the plugin.
func DefaultConfig() Config {
	return Config{
		PlatformCommand: []string{"npm", "test"},
		PluginCommand:   []string{"npx", "jest"},
		TestDirs:        []string{"tests", "__tests__"},
	}
}

// SuiteError reports a failing test suite.
type SuiteError struct {
	Suite    string
	ExitCode int
	Output   string
}

func (e *SuiteError) Error() string {
	return fmt.Sprintf("%s tests failed with exit code %d", e.Suite, e.ExitCode)
}

// IsSuiteError reports whether err is a SuiteError.
func IsSuiteError(err error) bool {
	var target *SuiteError
	return errors.As(err, &target)
}

// Result summarizes a gate run.
type Result struct {
	Plugin        string
	Platform      ports.CommandResult
	PluginTests   *ports.CommandResult
	TestDir       string
	SkippedPlugin bool
}

// Gate runs test suites through a CommandRunner.
type Gate struct {
	runner      ports.CommandRunner
	pluginsRoot string
	config      Config
	skip        bool
	lookupEnv   func(string) (string, bool)
	logger      ports.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithConfig overrides the suite commands. Empty fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(g *Gate) {
		if len(cfg.PlatformCommand) > 0 {
			g.config.PlatformCommand = cfg.PlatformCommand
		}
		if len(cfg.PluginCommand) > 0 {
			g.config.PluginCommand = cfg.PluginCommand
		}
		if len(cfg.TestDirs) > 0 {
			g.config.TestDirs = cfg.TestDirs
		}
	}
}

// WithSkipPluginTests allows plugins without tests to pass with a warning.
func WithSkipPluginTests(skip bool) Option {
	return func(g *Gate) {
		g.skip = skip
	}
}

// WithLookupEnv replaces the environment lookup.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(g *Gate) {
		g.lookupEnv = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(g *Gate) {
		g.logger = logging.OrNop(logger)
	}
}

// New creates a gate for plugins under pluginsRoot.
func New(runner ports.CommandRunner, pluginsRoot string, opts ...Option) *Gate {
	g := &Gate{
		runner:      runner,
		pluginsRoot: pluginsRoot,
		config:      DefaultConfig(),
		lookupEnv:   os.LookupEnv,
		logger:      logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run validates name, runs the platform suite, then the plugin suite. The
// name is checked before any process starts.
func (g *Gate) Run(ctx context.Context, name string) (*Result, error) {
	if err := validation.ValidatePluginName(name); err != nil {
		return nil, err
	}
	if len(g.config.PlatformCommand) == 0 || len(g.config.PluginCommand) == 0 {
		return nil, ErrEmptyCommand
	}

	pluginDir, err := filepath.Abs(filepath.Join(g.pluginsRoot, name))
	if err != nil {
		return nil, err
	}
	if st, err := os.Stat(pluginDir); err != nil || !st.IsDir() {
		return nil, &plugin.NotFoundError{Path: pluginDir}
	}

	result := &Result{Plugin: name}

	g.logger.Info(ctx, "running platform tests", ports.F("command", strings.Join(g.config.PlatformCommand, " ")))
	platform, err := g.run(ctx, "platform", g.config.PlatformCommand)
	if err != nil {
		return result, err
	}
	result.Platform = platform

	testDir, err := g.findTestDir(pluginDir)
	if err != nil {
		return result, err
	}
	if testDir == "" {
		if !g.skipRequested() {
			return result, fmt.Errorf("%s: %w (looked in %s)", name, ErrNoPluginTests, strings.Join(g.config.TestDirs, ", "))
		}
		g.logger.Warn(ctx, "plugin has no tests, skipping plugin suite", ports.F("plugin", name))
		result.SkippedPlugin = true
		return result, nil
	}
	result.TestDir = testDir

	args := append(slices.Clone(g.config.PluginCommand), testDir)
	g.logger.Info(ctx, "running plugin tests",
		ports.F("plugin", name),
		ports.F("dir", testDir))
	pluginRes, err := g.run(ctx, "plugin", args)
	if err != nil {
		return result, err
	}
	result.PluginTests = &pluginRes

	return result, nil
}

func (g *Gate) run(ctx context.Context, suite string, argv []string) (ports.CommandResult, error) {
	res, err := g.runner.Run(ctx, "", argv[0], argv[1:]...)
	if err != nil {
		return res, fmt.Errorf("running %s tests: %w", suite, err)
	}
	if !res.Success() {
		return res, &SuiteError{Suite: suite, ExitCode: res.ExitCode, Output: res.Output()}
	}
	return res, nil
}

// findTestDir returns the first configured test directory that holds at
// least one regular file, or "" when none does.
func (g *Gate) findTestDir(pluginDir string) (string, error) {
	for _, name := range g.config.TestDirs {
		dir := filepath.Join(pluginDir, name)
		ok, err := hasFiles(dir)
		if err != nil {
			return "", fmt.Errorf("scanning %s: %w", dir, err)
		}
		if ok {
			return dir, nil
		}
	}
	return "", nil
}

var errFound = errors.New("found")

func hasFiles(dir string) (bool, error) {
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			return errFound
		}
		return nil
	})
	switch {
	case errors.Is(err, errFound):
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (g *Gate) skipRequested() bool {
	if g.skip {
		return true
	}
	for _, key := range []string{EnvSkipPluginTests, EnvSkipPluginTestsLegacy} {
		if v, ok := g.lookupEnv(key); ok && IsTruthy(v) {
			return true
		}
	}
	return false
}

// IsTruthy reports whether an environment value enables a flag.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
