package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pluginkit/internal/domain/scaffold"
	"github.com/felixgeelhaar/pluginkit/internal/validation"
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Scaffold a new plugin",
	Long: `Create writes the skeleton of a new plugin under the plugins root:
a top-level README plus the admin and/or api modules with manifests,
entry points and example extension points.

Without a name or module flags, create asks interactively.`,
	Example: `  pluginkit create order-history
  pluginkit create billing --api
  pluginkit create dashboards --admin --plugins-root extensions`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

var (
	createAdmin bool
	createAPI   bool
	createForce bool
)

// errNameRequired is returned when no name is given and prompts are disabled.
var errNameRequired = errors.New("plugin name required (pass it as an argument)")

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().BoolVar(&createAdmin, "admin", false, "generate the admin module")
	createCmd.Flags().BoolVar(&createAPI, "api", false, "generate the api module")
	createCmd.Flags().BoolVar(&createForce, "force", false, "write into an existing plugin directory")
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		if !canPrompt() {
			return errNameRequired
		}
		if name, err = newPrompter().PromptName(ctx, ""); err != nil {
			return err
		}
	}
	if err := validation.ValidateScaffoldName(name); err != nil {
		return err
	}

	modules := scaffold.Modules{Admin: createAdmin, API: createAPI}
	if !modules.Any() {
		if canPrompt() {
			if modules, err = newPrompter().PromptModules(ctx); err != nil {
				return err
			}
		} else {
			modules = scaffold.Modules{Admin: true, API: true}
		}
	}

	dir := filepath.Join(cfg.PluginsRoot, name)
	if _, err := os.Stat(dir); err == nil && !createForce {
		if !canPrompt() {
			return fmt.Errorf("%s already exists (use --force to write into it)", dir)
		}
		ok, err := newPrompter().Confirm(ctx, fmt.Sprintf("%s already exists. Overwrite generated files?", dir), false)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s already exists", dir)
		}
	}

	svc := newServices(cfg, logger, "")
	result, err := svc.generator().CreatePlugin(ctx, name, cfg.PluginsRoot, modules)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s Created %s\n", styles.Success.Render("✓"), result.Dir)
	for _, f := range result.Files {
		_, _ = fmt.Fprintf(out, "  • %s\n", f)
	}
	return nil
}
