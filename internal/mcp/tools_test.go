package mcp

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/felixgeelhaar/pluginkit/internal/adapters/filesystem"
	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/domain/backup"
	"github.com/felixgeelhaar/pluginkit/internal/domain/compiler"
	"github.com/felixgeelhaar/pluginkit/internal/domain/pipeline"
	"github.com/felixgeelhaar/pluginkit/internal/domain/scaffold"
	"github.com/felixgeelhaar/pluginkit/internal/domain/signing"
	"github.com/felixgeelhaar/pluginkit/internal/testutil"
	"github.com/felixgeelhaar/pluginkit/internal/testutil/mocks"
)

type harness struct {
	root    string
	out     string
	toolkit *Toolkit
	srv     *mcp.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "plugins")
	out := filepath.Join(base, "plugin-zips")

	backups := backup.NewManager(filepath.Join(base, "backups"))
	tk := &Toolkit{
		PluginsRoot: root,
		OutputDir:   out,
		Pipeline: pipeline.New(
			compiler.NewCompiler(mocks.NewCommandRunner(), backups),
			archive.NewArchiver(archive.WithOutputDir(out)),
			backup.NewManager(filepath.Join(base, "staging")),
		),
		Generator: scaffold.NewGenerator(filesystem.NewRealFileSystem()),
		Version:   VersionInfo{Version: "1.2.3", Commit: "abc123", BuildDate: "2026-01-01"},
	}

	srv := mcp.NewServer(mcp.ServerInfo{Name: "pluginkit-test", Version: "1.0.0"})
	RegisterAll(srv, tk)
	return &harness{root: root, out: out, toolkit: tk, srv: srv}
}

func (h *harness) addPlugin(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(h.root, name)
	testutil.WriteTree(t, dir, testutil.PluginTree(name))
	return dir
}

// executeTool retrieves and executes a registered tool by name.
func executeTool(t *testing.T, srv *mcp.Server, toolName string, input any) (any, error) {
	t.Helper()
	tool, ok := srv.GetTool(toolName)
	require.True(t, ok, "tool %q should be registered", toolName)

	data, err := json.Marshal(input)
	require.NoError(t, err)

	return tool.Execute(context.Background(), data)
}

func TestRegisterAll(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	names := make(map[string]bool)
	for _, tool := range h.srv.Tools() {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"pluginkit_validate",
		"pluginkit_list",
		"pluginkit_package",
		"pluginkit_scaffold",
		"pluginkit_verify",
		"pluginkit_status",
	} {
		assert.True(t, names[want], "%s should be registered", want)
	}
}

func TestValidateTool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addPlugin(t, "inventory")

	result, err := executeTool(t, h.srv, "pluginkit_validate", ValidateInput{Plugin: "inventory"})
	require.NoError(t, err)

	output, ok := result.(*ValidateOutput)
	require.True(t, ok, "result should be *ValidateOutput")
	assert.True(t, output.Valid)
	assert.Len(t, output.Files, 3)
}

func TestValidateTool_ReportsErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	dir := h.addPlugin(t, "inventory")
	testutil.WriteTempFile(t, dir, "admin/manifest.json", `{"name":"inventory","pluginId":"Bad Id","version":"1.0"}`)

	result, err := executeTool(t, h.srv, "pluginkit_validate", ValidateInput{Plugin: "inventory"})
	require.NoError(t, err)

	output := result.(*ValidateOutput)
	assert.False(t, output.Valid)

	var admin *FileResult
	for i := range output.Files {
		if output.Files[i].Path == "admin/manifest.json" {
			admin = &output.Files[i]
		}
	}
	require.NotNil(t, admin)
	assert.False(t, admin.Valid)
	assert.NotEmpty(t, admin.Errors)
}

func TestValidateTool_InvalidInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := executeTool(t, h.srv, "pluginkit_validate", ValidateInput{Plugin: "../etc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid plugin")

	_, err = executeTool(t, h.srv, "pluginkit_validate", ValidateInput{Plugin: "missing"})
	assert.Error(t, err)
}

func TestListTool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addPlugin(t, "weather")
	h.addPlugin(t, "inventory")

	result, err := executeTool(t, h.srv, "pluginkit_list", ListInput{})
	require.NoError(t, err)

	output := result.(*ListOutput)
	require.Len(t, output.Plugins, 2)
	assert.Equal(t, "inventory", output.Plugins[0].Name)
	assert.Equal(t, "inventory", output.Plugins[0].ID)
	assert.Equal(t, "1.0.0", output.Plugins[0].Version)
	assert.True(t, output.Plugins[0].Admin)
	assert.True(t, output.Plugins[0].API)
	assert.True(t, output.Plugins[0].Consistent)
	assert.Equal(t, "weather", output.Plugins[1].Name)
}

func TestListTool_MissingRoot(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	result, err := executeTool(t, h.srv, "pluginkit_list", ListInput{})
	require.NoError(t, err)
	assert.Empty(t, result.(*ListOutput).Plugins)
}

func TestPackageTool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addPlugin(t, "inventory")

	result, err := executeTool(t, h.srv, "pluginkit_package", PackageInput{Plugin: "inventory"})
	require.NoError(t, err)

	output := result.(*PackageOutput)
	assert.Equal(t, filepath.Join(h.out, "inventory-dev.zip"), output.Archive)
	assert.Equal(t, "development", output.Mode)
	assert.Equal(t, []string{"validating", "compiling", "packaging", "signing", "done"}, output.Transitions)
	testutil.AssertFileExists(t, output.Archive)
}

func TestPackageTool_ValidationFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	dir := h.addPlugin(t, "inventory")
	testutil.WriteTempFile(t, dir, "api/manifest.json", `{"name":"inventory"}`)

	_, err := executeTool(t, h.srv, "pluginkit_package", PackageInput{Plugin: "inventory"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api/manifest.json")
	testutil.AssertFileNotExists(t, filepath.Join(h.out, "inventory-dev.zip"))
}

func TestPackageTool_InvalidMode(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addPlugin(t, "inventory")

	_, err := executeTool(t, h.srv, "pluginkit_package", PackageInput{Plugin: "inventory", Mode: "staging"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestScaffoldTool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	result, err := executeTool(t, h.srv, "pluginkit_scaffold", ScaffoldInput{Name: "order-history"})
	require.NoError(t, err)

	output := result.(*ScaffoldOutput)
	assert.Equal(t, filepath.Join(h.root, "order-history"), output.Dir)
	assert.NotEmpty(t, output.Files)
	testutil.AssertDirExists(t, filepath.Join(output.Dir, "admin"))
	testutil.AssertDirExists(t, filepath.Join(output.Dir, "api"))

	// Skeleton manifests carry no pluginId; that is the only problem reported.
	vres, err := executeTool(t, h.srv, "pluginkit_validate", ValidateInput{Plugin: "order-history"})
	require.NoError(t, err)
	report := vres.(*ValidateOutput)
	assert.False(t, report.Valid)
	require.Len(t, report.Files, 2)
	for _, f := range report.Files {
		assert.Equal(t, []string{"Missing required field: pluginId"}, f.Errors, f.Path)
	}
}

func TestScaffoldTool_APIOnly(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	result, err := executeTool(t, h.srv, "pluginkit_scaffold", ScaffoldInput{Name: "billing", API: true})
	require.NoError(t, err)

	dir := result.(*ScaffoldOutput).Dir
	testutil.AssertDirExists(t, filepath.Join(dir, "api"))
	testutil.AssertFileNotExists(t, filepath.Join(dir, "admin"))
}

func TestScaffoldTool_InvalidName(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := executeTool(t, h.srv, "pluginkit_scaffold", ScaffoldInput{Name: "../escape"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid name")
}

func TestVerifyTool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	archivePath := testutil.WriteTempFile(t, h.out, "inventory-prod.zip", "PK\x03\x04 archive")

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	_, sig, err := signing.Sign(archivePath, signer)
	require.NoError(t, err)

	// Without trusted keys the tool refuses to verify.
	_, err = executeTool(t, h.srv, "pluginkit_verify", VerifyInput{Archive: "inventory-prod.zip"})
	assert.ErrorIs(t, err, ErrNoTrustedKeys)

	h.toolkit.TrustedKeys = testutil.WriteTempFile(t, t.TempDir(), "trusted_keys",
		string(ssh.MarshalAuthorizedKey(signer.PublicKey())))

	result, err := executeTool(t, h.srv, "pluginkit_verify", VerifyInput{Archive: "inventory-prod.zip"})
	require.NoError(t, err)
	output := result.(*VerifyOutput)
	assert.Equal(t, sig.Digest, output.Digest)
	assert.Equal(t, sig.Fingerprint, output.Fingerprint)

	require.NoError(t, os.WriteFile(archivePath, []byte("tampered"), 0o644))
	_, err = executeTool(t, h.srv, "pluginkit_verify", VerifyInput{Archive: "inventory-prod.zip"})
	assert.ErrorIs(t, err, signing.ErrDigestMismatch)
}

func TestStatusTool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	result, err := executeTool(t, h.srv, "pluginkit_status", StatusInput{})
	require.NoError(t, err)

	output := result.(*StatusOutput)
	assert.Equal(t, "1.2.3", output.Version)
	assert.Equal(t, h.root, output.PluginsRoot)
	assert.False(t, output.Verify)
}
