package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/domain/pipeline"
)

var releaseCmd = &cobra.Command{
	Use:   "release <plugin-dir>",
	Short: "Validate, compile and package a production archive",
	Long: `Release runs the full production pipeline without prompting:

  validating → compiling → packaging → signing → done

Validation cannot be skipped. The plugin directory is left untouched
unless --in-place is given. Signing runs when --sign-key is set or
signing.key is configured.`,
	Example: `  pluginkit release plugins/inventory
  pluginkit release plugins/inventory --skip-type-check --sign-key ~/.ssh/release_ed25519`,
	Args: cobra.ExactArgs(1),
	RunE: runRelease,
}

var (
	releaseSkipTypeCheck bool
	releaseInPlace       bool
	releaseSignKey       string
	releaseOutputDir     string
)

func init() {
	rootCmd.AddCommand(releaseCmd)

	releaseCmd.Flags().BoolVar(&releaseSkipTypeCheck, "skip-type-check", false, "fall back to transpile-only compilation when type checking fails")
	releaseCmd.Flags().BoolVar(&releaseInPlace, "in-place", false, "compile the plugin directory instead of a staged copy")
	releaseCmd.Flags().StringVar(&releaseSignKey, "sign-key", "", "sign the archive with this SSH private key (default: signing.key)")
	releaseCmd.Flags().StringVarP(&releaseOutputDir, "output-dir", "o", "", "archive output directory (overrides output_dir)")
}

func runRelease(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	req := pipeline.Request{
		Mode:          archive.Production,
		SkipTypeCheck: releaseSkipTypeCheck,
		InPlace:       releaseInPlace,
	}

	keyPath := releaseSignKey
	if keyPath == "" {
		keyPath = cfg.Signing.Key
	}
	if keyPath != "" {
		if req.Signer, err = loadSigner(keyPath); err != nil {
			return err
		}
	}

	svc := newServices(cfg, logger, releaseOutputDir)
	out := cmd.OutOrStdout()

	res, err := svc.pipeline.Run(ctx, args[0], req)
	if res != nil && len(res.Transitions) > 0 {
		_, _ = fmt.Fprintf(out, "%s\n", styles.Subtitle.Render(stages(res.Transitions)))
	}
	if err != nil {
		if res != nil && res.Report != nil && !res.Report.Valid() {
			outputValidationText(out, res.Plugin, res.Report)
		}
		return err
	}

	_, _ = fmt.Fprintf(out, "%s Released %s\n", mark(true), res.Archive)
	if res.Signature != "" {
		_, _ = fmt.Fprintf(out, "%s Signed %s\n", mark(true), res.Signature)
	}
	return nil
}
