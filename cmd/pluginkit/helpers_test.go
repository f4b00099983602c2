package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/domain/scaffold"
	"github.com/felixgeelhaar/pluginkit/internal/ports"
	"github.com/felixgeelhaar/pluginkit/internal/testutil"
	"github.com/felixgeelhaar/pluginkit/internal/testutil/mocks"
	"github.com/felixgeelhaar/pluginkit/internal/tui"
)

// cliEnv is a project directory the CLI runs in, with external commands
// and prompts replaced.
type cliEnv struct {
	dir    string
	runner *mocks.CommandRunner
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()

	dir := t.TempDir()
	testutil.ChangeDir(t, dir)
	testutil.UnsetEnv(t, "PLUGINKIT_SKIP_PLUGIN_TESTS")
	testutil.UnsetEnv(t, "SKIP_PLUGIN_TESTS")
	testutil.UnsetEnv(t, EnvSignPassphrase)

	env := &cliEnv{dir: dir, runner: mocks.NewCommandRunner()}

	savedRunner, savedPrompter, savedInteractive, savedWorkDir := newRunner, newPrompter, interactive, workDir
	newRunner = func() ports.CommandRunner { return env.runner }
	newPrompter = func() tui.Prompter { return &fakePrompter{} }
	interactive = func() bool { return false }
	workDir = filepath.Join(dir, ".pluginkit-work")
	t.Cleanup(func() {
		newRunner, newPrompter, interactive, workDir = savedRunner, savedPrompter, savedInteractive, savedWorkDir
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	})

	resetFlags(rootCmd)
	return env
}

// usePrompter makes the CLI interactive with p answering every prompt.
func usePrompter(p *fakePrompter) {
	interactive = func() bool { return true }
	newPrompter = func() tui.Prompter { return p }
}

// resetFlags restores every flag of cmd and its subcommands to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI with args and returns stdout and stderr. Flags start
// from their defaults on every call.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) addPlugin(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(e.dir, "plugins", name)
	testutil.WriteTree(t, dir, testutil.PluginTree(name))
	return dir
}

// addJSPlugin writes a plugin without TypeScript sources, which compiles
// without running the compiler.
func (e *cliEnv) addJSPlugin(t *testing.T, name string) string {
	t.Helper()
	manifest := testutil.NewManifestBuilder(name).JSON(t)
	dir := filepath.Join(e.dir, "plugins", name)
	testutil.WriteTree(t, dir, map[string]string{
		"manifest.json":       manifest,
		"admin/manifest.json": manifest,
		"admin/index.js":      "export default function Admin() { return null; }",
		"api/manifest.json":   manifest,
		"api/index.js":        "export const api = {};",
		"api/index.js.map":    "{}",
	})
	return dir
}

// writeKeyPair writes an unencrypted ed25519 key and an authorized_keys file
// trusting it.
func writeKeyPair(t *testing.T, dir string) (string, string) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "release")
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	keyPath := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))
	trustedPath := filepath.Join(dir, "trusted_keys")
	require.NoError(t, os.WriteFile(trustedPath, ssh.MarshalAuthorizedKey(signer.PublicKey()), 0o600))
	return keyPath, trustedPath
}

type fakePrompter struct {
	name    string
	modules scaffold.Modules
	mode    archive.Mode
	confirm bool
	err     error

	calls []string
}

func (f *fakePrompter) PromptName(_ context.Context, _ string) (string, error) {
	f.calls = append(f.calls, "name")
	return f.name, f.err
}

func (f *fakePrompter) PromptModules(_ context.Context) (scaffold.Modules, error) {
	f.calls = append(f.calls, "modules")
	return f.modules, f.err
}

func (f *fakePrompter) PromptMode(_ context.Context) (archive.Mode, error) {
	f.calls = append(f.calls, "mode")
	return f.mode, f.err
}

func (f *fakePrompter) Confirm(_ context.Context, _ string, _ bool) (bool, error) {
	f.calls = append(f.calls, "confirm")
	return f.confirm, f.err
}
