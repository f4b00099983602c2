package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pluginkit/internal/domain/manifest"
	"github.com/felixgeelhaar/pluginkit/internal/domain/plugin"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plugin-dir>",
	Short: "Validate a plugin's manifests and extension points",
	Long: `Validate checks every manifest.json of a plugin (root, admin and api):
required fields, pluginId and version formats, and the files and named
exports referenced by extension points.

All errors are reported; nothing is modified. The exit code is 1 when any
manifest is invalid.`,
	Example: `  pluginkit validate plugins/inventory
  pluginkit validate plugins/inventory --json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var validateJSON bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output results as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	info, err := plugin.Probe(args[0])
	if err != nil {
		return err
	}
	if err := info.RequireModules(); err != nil {
		return err
	}

	report, err := manifest.ValidatePlugin(ctx, info.Path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if validateJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		outputValidationText(out, info, report)
	}

	if !report.Valid() {
		return fmt.Errorf("%s: %d validation error(s)", info.Name, len(report.Errors()))
	}
	return nil
}

func outputValidationText(w io.Writer, info plugin.Info, report *manifest.Report) {
	for _, f := range report.Files {
		_, _ = fmt.Fprintf(w, "%s %s\n", mark(f.Result.Valid), f.Path)
		for _, msg := range f.Result.Errors {
			_, _ = fmt.Fprintf(w, "    • %s\n", msg)
		}
	}
	if report.Valid() {
		_, _ = fmt.Fprintf(w, "%s is valid\n", info.Name)
	}
}
