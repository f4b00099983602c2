package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pluginkit/internal/domain/plugin"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List plugins under the plugins root",
	Long: `List discovers every plugin directory under the plugins root and shows
its id, version and modules. A plugin whose manifests disagree on pluginId
or version is flagged.`,
	Example: `  pluginkit list
  pluginkit list --plugins-root ./extensions --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listJSON bool

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output results as JSON")
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result, err := plugin.NewLoader(cfg.PluginsRoot).Discover(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listJSON {
		return writeJSON(out, listView(cfg.PluginsRoot, result))
	}

	if len(result.Plugins) == 0 && !result.HasErrors() {
		_, _ = fmt.Fprintf(out, "No plugins found in %s\n", cfg.PluginsRoot)
		return nil
	}
	outputPluginTable(out, result.Plugins)

	for _, de := range result.Errors {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", styles.Warning.Render("!"), de.Error())
	}
	return nil
}

func outputPluginTable(w io.Writer, plugins []plugin.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tID\tVERSION\tMODULES\tSTATUS")
	for _, p := range plugins {
		version := p.Version
		if version == "" {
			version = "-"
		}
		status := mark(p.Consistent())
		if !p.Consistent() {
			status += " " + strings.Join(p.Issues, "; ")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.Info.Name, p.ID, version, strings.Join(p.Info.Modules(), ","), status)
	}
	_ = tw.Flush()
}

type listOutput struct {
	Root    string           `json:"root"`
	Plugins []plugin.Summary `json:"plugins"`
	Errors  []string         `json:"errors,omitempty"`
}

func listView(root string, result *plugin.DiscoveryResult) listOutput {
	view := listOutput{Root: root, Plugins: result.Plugins}
	for _, de := range result.Errors {
		view.Errors = append(view.Errors, de.Error())
	}
	return view
}
