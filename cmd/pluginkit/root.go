package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pluginkit/internal/adapters/command"
	"github.com/felixgeelhaar/pluginkit/internal/adapters/logging"
	"github.com/felixgeelhaar/pluginkit/internal/domain/compiler"
	"github.com/felixgeelhaar/pluginkit/internal/domain/config"
	"github.com/felixgeelhaar/pluginkit/internal/domain/gate"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
	"github.com/felixgeelhaar/pluginkit/internal/tui"
)

var (
	// Global flags
	cfgFile    string
	verbose    bool
	logJSON    bool
	noInput    bool
	pluginsDir string
)

// Seams replaced by tests.
var (
	newRunner   = func() ports.CommandRunner { return command.NewRealRunner() }
	newPrompter = func() tui.Prompter { return tui.NewTerminalPrompter() }
	interactive = stdinIsTerminal
)

var rootCmd = &cobra.Command{
	Use:   "pluginkit",
	Short: "Validate, scaffold and package plugins",
	Long: `pluginkit is the developer toolchain for plugins built from an admin UI
module and an API module.

It validates manifests and extension points, scaffolds new plugins,
compiles TypeScript for production and packages plugins into zip archives:
  Validate → Compile → Package → Sign`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command, canceling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: pluginkit.yaml or pluginkit.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&noInput, "no-input", false, "never prompt; use flags and defaults")
	rootCmd.PersistentFlags().StringVar(&pluginsDir, "plugins-root", "", "plugins root directory (overrides plugins_root)")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the project configuration from the working directory
// and applies flag overrides.
func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(wd, cfgFile)
	if err != nil {
		return nil, err
	}
	if pluginsDir != "" {
		cfg.PluginsRoot = pluginsDir
	}
	return cfg, nil
}

// newLogger builds the console logger for cfg. --verbose and --log-json win
// over the configuration file.
func newLogger(cmd *cobra.Command, cfg *config.Config) ports.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = ports.LevelDebug
	}
	return logging.NewConsoleLogger(
		logging.WithOutput(cmd.ErrOrStderr()),
		logging.WithLevel(level),
		logging.WithJSONFormat(logJSON || cfg.Log.JSON),
	)
}

// canPrompt reports whether prompts may be shown.
func canPrompt() bool {
	return !noInput && interactive()
}

func stdinIsTerminal() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice != 0
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}

	var list *config.ErrorList
	if errors.As(err, &list) {
		return list.Format()
	}

	if compileErr, ok := compiler.AsCompileError(err); ok {
		return compileErr.Format()
	}

	var suiteErr *gate.SuiteError
	if errors.As(err, &suiteErr) && suiteErr.Output != "" {
		return fmt.Sprintf("%s\n\n%s", err.Error(), suiteErr.Output)
	}

	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	// Complete --config with YAML and TOML files
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	_ = rootCmd.RegisterFlagCompletionFunc("plugins-root", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	})
}
