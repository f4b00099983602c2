package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pluginkit/internal/ports"
)

var gateCmd = &cobra.Command{
	Use:   "gate <plugin-name>",
	Short: "Run the platform and plugin test suites",
	Long: `Gate runs the platform test suite, then the plugin's own tests found in
<plugins-root>/<plugin-name>/tests (or __tests__).

A plugin without tests fails the gate unless --skip-plugin-tests is given
or PLUGINKIT_SKIP_PLUGIN_TESTS (or SKIP_PLUGIN_TESTS) is set to a truthy
value. The plugin name may only contain letters, digits, '-' and '_'.`,
	Example: `  pluginkit gate inventory
  pluginkit gate inventory --skip-plugin-tests
  SKIP_PLUGIN_TESTS=1 pluginkit gate inventory`,
	Args: cobra.ExactArgs(1),
	RunE: runGate,
}

var gateSkipPluginTests bool

func init() {
	rootCmd.AddCommand(gateCmd)

	gateCmd.Flags().BoolVar(&gateSkipPluginTests, "skip-plugin-tests", false, "pass the gate when the plugin has no tests")
}

func runGate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	svc := newServices(cfg, logger, "")
	res, err := svc.gate(gateSkipPluginTests).Run(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSuite(out, "platform", &res.Platform)
	switch {
	case res.SkippedPlugin:
		_, _ = fmt.Fprintf(out, "%s plugin tests skipped (no tests found)\n", styles.Warning.Render("!"))
	case res.PluginTests != nil:
		printSuite(out, "plugin", res.PluginTests)
	}
	_, _ = fmt.Fprintf(out, "%s gate passed for %s\n", mark(true), res.Plugin)
	return nil
}

func printSuite(w io.Writer, suite string, res *ports.CommandResult) {
	_, _ = fmt.Fprintf(w, "%s %s tests passed\n", mark(res.Success()), suite)
	if verbose {
		if out := strings.TrimSpace(res.Stdout); out != "" {
			_, _ = fmt.Fprintln(w, out)
		}
	}
}
