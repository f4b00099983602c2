package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/domain/pipeline"
	"github.com/felixgeelhaar/pluginkit/internal/domain/plugin"
	"github.com/felixgeelhaar/pluginkit/internal/domain/signing"
	"github.com/felixgeelhaar/pluginkit/internal/domain/watch"
)

// EnvSignPassphrase holds the passphrase of an encrypted signing key.
const EnvSignPassphrase = "PLUGINKIT_SIGN_PASSPHRASE"

var packageCmd = &cobra.Command{
	Use:   "package [plugin-dir]",
	Short: "Package a plugin into a zip archive",
	Long: `Package validates a plugin and writes <pluginId>-<dev|prod>.zip to the
output directory.

Development archives contain everything except OS junk files. Production
archives are built from a staged copy whose TypeScript has been compiled,
and contain only runtime files. Use --in-place to compile the plugin
directory itself.

Without --mode, package asks interactively and defaults to dev otherwise.`,
	Example: `  pluginkit package plugins/inventory
  pluginkit package plugins/inventory --mode prod --skip-type-check
  pluginkit package plugins/inventory --mode prod --sign-key ~/.ssh/id_ed25519
  pluginkit package plugins/inventory --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPackage,
}

var (
	packageMode           string
	packageSkipTypeCheck  bool
	packageSkipValidation bool
	packageInPlace        bool
	packageSign           bool
	packageSignKey        string
	packageWatch          bool
	packageDebounce       time.Duration
	packageOutputDir      string
)

var errWatchInPlace = errors.New("--watch cannot be combined with --in-place")

func init() {
	rootCmd.AddCommand(packageCmd)

	packageCmd.Flags().StringVarP(&packageMode, "mode", "m", "", "archive mode: dev or prod")
	packageCmd.Flags().BoolVar(&packageSkipTypeCheck, "skip-type-check", false, "fall back to transpile-only compilation when type checking fails")
	packageCmd.Flags().BoolVar(&packageSkipValidation, "skip-validation", false, "package without validating manifests")
	packageCmd.Flags().BoolVar(&packageInPlace, "in-place", false, "compile the plugin directory instead of a staged copy")
	packageCmd.Flags().BoolVar(&packageSign, "sign", false, "sign the archive with signing.key")
	packageCmd.Flags().StringVar(&packageSignKey, "sign-key", "", "sign the archive with this SSH private key")
	packageCmd.Flags().BoolVarP(&packageWatch, "watch", "w", false, "repackage whenever the plugin changes")
	packageCmd.Flags().DurationVar(&packageDebounce, "debounce", watch.DefaultDebounce, "quiet period before repackaging in watch mode")
	packageCmd.Flags().StringVarP(&packageOutputDir, "output-dir", "o", "", "archive output directory (overrides output_dir)")

	_ = packageCmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"dev\tEverything except OS junk",
			"prod\tCompiled runtime files only",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runPackage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if packageWatch && packageInPlace {
		return errWatchInPlace
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	req, err := packageRequest(ctx, cmd)
	if err != nil {
		return err
	}
	req.SkipValidation = packageSkipValidation
	req.InPlace = packageInPlace

	keyPath := packageSignKey
	if keyPath == "" && packageSign {
		if cfg.Signing.Key == "" {
			return errors.New("--sign needs signing.key in the configuration or --sign-key")
		}
		keyPath = cfg.Signing.Key
	}
	if keyPath != "" {
		if req.Signer, err = loadSigner(keyPath); err != nil {
			return err
		}
	}

	svc := newServices(cfg, logger, packageOutputDir)
	out := cmd.OutOrStdout()

	if !packageWatch {
		return packageOnce(ctx, out, svc.pipeline, dir, req)
	}

	info, err := plugin.Probe(dir)
	if err != nil {
		return err
	}
	w := watch.New(info.Path,
		func(ctx context.Context) error {
			return packageOnce(ctx, out, svc.pipeline, info.Path, req)
		},
		watch.WithDebounce(packageDebounce),
		watch.WithLogger(logger),
		watch.WithOnBuild(func(err error) {
			if err != nil {
				printErrorTo(cmd.ErrOrStderr(), err)
			}
		}))

	_, _ = fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", info.Path)
	return w.Run(ctx)
}

// packageRequest resolves mode and type checking from flags, prompting for
// whatever flags leave open.
func packageRequest(ctx context.Context, cmd *cobra.Command) (pipeline.Request, error) {
	req := pipeline.Request{SkipTypeCheck: packageSkipTypeCheck}

	switch {
	case packageMode != "":
		mode, err := archive.ParseMode(packageMode)
		if err != nil {
			return req, err
		}
		req.Mode = mode
	case canPrompt():
		mode, err := newPrompter().PromptMode(ctx)
		if err != nil {
			return req, err
		}
		req.Mode = mode
	default:
		req.Mode = archive.Development
	}

	if req.Mode == archive.Production && !cmd.Flags().Changed("skip-type-check") && canPrompt() {
		skip, err := newPrompter().Confirm(ctx, "Fall back to transpile-only compilation if type checking fails?", false)
		if err != nil {
			return req, err
		}
		req.SkipTypeCheck = skip
	}
	return req, nil
}

func loadSigner(path string) (ssh.Signer, error) {
	var passphrase []byte
	if v, ok := os.LookupEnv(EnvSignPassphrase); ok {
		passphrase = []byte(v)
	}
	return signing.LoadSigner(path, passphrase)
}

func packageOnce(ctx context.Context, w io.Writer, p *pipeline.Pipeline, dir string, req pipeline.Request) error {
	res, err := p.Run(ctx, dir, req)
	if err != nil {
		if res != nil && res.Report != nil && !res.Report.Valid() {
			outputValidationText(w, res.Plugin, res.Report)
		}
		return err
	}

	_, _ = fmt.Fprintf(w, "%s Packaged %s (%s)\n", mark(true), res.Archive, req.Mode)
	if res.Signature != "" {
		_, _ = fmt.Fprintf(w, "%s Signed %s\n", mark(true), res.Signature)
	}
	return nil
}

// stages renders the states a run went through.
func stages(states []pipeline.State) string {
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, string(s))
	}
	return strings.Join(names, " → ")
}
