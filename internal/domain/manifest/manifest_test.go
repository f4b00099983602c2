package manifest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
  "name": "Demo",
  "pluginId": "demo",
  "version": "1.2.3",
  "description": "Demo plugin",
  "author": "Plugin Team"
}`

func TestLoad(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, FileName, validJSON)

	m, err := Load(filepath.Join(root, FileName))
	require.NoError(t, err)
	assert.Equal(t, "demo", m.PluginID)
	assert.Equal(t, "1.2.3", m.Version)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	_, err := Load(filepath.Join(root, FileName))
	assert.True(t, IsNotFound(err))

	writeFile(t, root, "broken/"+FileName, "{not json")
	_, err = LoadRaw(filepath.Join(root, "broken", FileName))
	assert.True(t, IsParseError(err))

	writeFile(t, root, "huge/"+FileName, `{"name":"`+strings.Repeat("x", int(maxManifestSize))+`"}`)
	_, err = LoadRaw(filepath.Join(root, "huge", FileName))
	assert.True(t, IsSizeError(err))
}

func TestReadPluginID_Priority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		files  map[string]string
		wantID string
		wantOK bool
	}{
		{
			name: "root wins",
			files: map[string]string{
				"manifest.json":       `{"pluginId": "root-id"}`,
				"admin/manifest.json": `{"pluginId": "admin-id"}`,
				"api/manifest.json":   `{"pluginId": "api-id"}`,
			},
			wantID: "root-id", wantOK: true,
		},
		{
			name: "admin before api",
			files: map[string]string{
				"admin/manifest.json": `{"pluginId": "admin-id"}`,
				"api/manifest.json":   `{"pluginId": "api-id"}`,
			},
			wantID: "admin-id", wantOK: true,
		},
		{
			name: "skips manifests without id",
			files: map[string]string{
				"manifest.json":       `{"name": "x"}`,
				"admin/manifest.json": `not json`,
				"api/manifest.json":   `{"pluginId": "api-id"}`,
			},
			wantID: "api-id", wantOK: true,
		},
		{
			name:  "none",
			files: map[string]string{"admin/manifest.json": `{"name": "x", "pluginId": 3}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			for rel, content := range tt.files {
				writeFile(t, root, rel, content)
			}
			id, ok := ReadPluginID(root)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestValidatePlugin(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "admin/manifest.json", validJSON)
	writeFile(t, root, "api/manifest.json", `{
  "name": "Demo API",
  "version": "1.2",
  "description": "x",
  "author": "y",
  "extensionPoints": {"api.graphql": [{"name": "orders", "type": "query", "file": "api/missing.ts"}]}
}`)

	report, err := ValidatePlugin(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, report.Files, 2)

	assert.Equal(t, "admin/manifest.json", report.Files[0].Path)
	assert.True(t, report.Files[0].Result.Valid)

	assert.Equal(t, "api/manifest.json", report.Files[1].Path)
	assert.Equal(t, []string{
		"Missing required field: pluginId",
		"version must follow semantic versioning (major.minor.patch)",
		"File api/missing.ts not found for extension orders",
	}, report.Files[1].Result.Errors)

	assert.False(t, report.Valid())
	assert.Contains(t, report.Errors(), "api/manifest.json: Missing required field: pluginId")
	assert.True(t, IsValidationError(report.Err()))
}

func TestValidatePlugin_ParseErrorIsReported(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "manifest.json", "{")

	report, err := ValidatePlugin(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.False(t, report.Valid())
}

func TestValidatePlugin_NoManifest(t *testing.T) {
	t.Parallel()

	_, err := ValidatePlugin(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoManifest)
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	ve := &ValidationError{}
	assert.False(t, ve.HasErrors())
	assert.True(t, ve.Result().Valid)

	ve.Add("first")
	assert.Equal(t, "first", ve.Error())

	ve.Addf("second %d", 2)
	assert.Equal(t, "validation failed: first; second 2", ve.Error())
	assert.Equal(t, ValidationResult{Valid: false, Errors: []string{"first", "second 2"}}, ve.Result())
}
