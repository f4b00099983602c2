package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/felixgeelhaar/pluginkit/internal/domain/signing"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <archive.zip>",
	Short: "Verify an archive against its detached signature",
	Long: `Verify recomputes the archive's SHA-256 digest and checks it against the
detached signature written by package --sign (<archive>.sig).

With trusted keys (--trusted-keys or signing.trusted_keys, in
authorized_keys format) the signing key must be one of them.`,
	Example: `  pluginkit verify dist/inventory-prod.zip
  pluginkit verify dist/inventory-prod.zip --trusted-keys ~/.config/pluginkit/trusted_keys`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

var (
	verifyTrustedKeys string
	verifySignature   string
	verifyJSON        bool
)

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyTrustedKeys, "trusted-keys", "", "authorized_keys file of trusted signers (default: signing.trusted_keys)")
	verifyCmd.Flags().StringVar(&verifySignature, "signature", "", "signature file (default: <archive>.sig)")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Output the signature as JSON")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	archivePath := args[0]
	sigPath := verifySignature
	if sigPath == "" {
		sigPath = signing.SignaturePath(archivePath)
	}

	keysPath := verifyTrustedKeys
	if keysPath == "" {
		keysPath = cfg.Signing.TrustedKeys
	}
	var trusted []ssh.PublicKey
	if keysPath != "" {
		if trusted, err = signing.LoadTrustedKeys(keysPath); err != nil {
			return err
		}
	}

	sig, err := signing.Verify(archivePath, sigPath, trusted)
	if err != nil {
		if errors.Is(err, signing.ErrDigestMismatch) {
			return fmt.Errorf("%s: %w", archivePath, err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if verifyJSON {
		return writeJSON(out, sig)
	}
	_, _ = fmt.Fprintf(out, "%s %s verified\n", mark(true), archivePath)
	_, _ = fmt.Fprintf(out, "  key:       %s\n", sig.Fingerprint)
	_, _ = fmt.Fprintf(out, "  signed at: %s\n", sig.SignedAt.Format("2006-01-02 15:04:05 MST"))
	if len(trusted) == 0 {
		_, _ = fmt.Fprintf(out, "%s no trusted keys configured; signer identity not checked\n", styles.Warning.Render("!"))
	}
	return nil
}
