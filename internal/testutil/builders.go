package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// ManifestBuilder builds manifest.json content for tests.
type ManifestBuilder struct {
	fields map[string]any
	points map[string][]map[string]any
}

// NewManifestBuilder starts from a manifest that passes field validation.
func NewManifestBuilder(pluginID string) *ManifestBuilder {
	return &ManifestBuilder{
		fields: map[string]any{
			"name":        pluginID,
			"pluginId":    pluginID,
			"version":     "1.0.0",
			"description": "Test plugin",
			"author":      "Test Author",
		},
		points: make(map[string][]map[string]any),
	}
}

// With sets a field to an arbitrary JSON value.
func (b *ManifestBuilder) With(field string, value any) *ManifestBuilder {
	b.fields[field] = value
	return b
}

// Without removes a field.
func (b *ManifestBuilder) Without(field string) *ManifestBuilder {
	delete(b.fields, field)
	return b
}

// WithExtension appends an extension entry to an extension point. Empty
// values are omitted from the entry.
func (b *ManifestBuilder) WithExtension(point, typ, name, file, builder string) *ManifestBuilder {
	entry := map[string]any{}
	for k, v := range map[string]string{"type": typ, "name": name, "file": file, "builderDefinition": builder} {
		if v != "" {
			entry[k] = v
		}
	}
	b.points[point] = append(b.points[point], entry)
	return b
}

// Build returns the manifest as a decoded JSON object.
func (b *ManifestBuilder) Build() map[string]any {
	out := make(map[string]any, len(b.fields)+1)
	for k, v := range b.fields {
		out[k] = v
	}
	if len(b.points) > 0 {
		points := make(map[string]any, len(b.points))
		for id, entries := range b.points {
			list := make([]any, len(entries))
			for i, e := range entries {
				list[i] = e
			}
			points[id] = list
		}
		out["extensionPoints"] = points
	}
	return out
}

// JSON returns the manifest encoded as indented JSON.
func (b *ManifestBuilder) JSON(t testing.TB) string {
	t.Helper()

	data, err := json.MarshalIndent(b.Build(), "", "  ")
	require.NoError(t, err)
	return string(data)
}

// PluginTree returns a minimal plugin layout with admin and api modules,
// sources, compiled assets, tests and OS junk, keyed by relative path.
func PluginTree(pluginID string) map[string]string {
	manifest := `{"name":"` + pluginID + `","pluginId":"` + pluginID + `","version":"1.0.0","description":"d","author":"a"}`
	return map[string]string{
		"manifest.json":                  manifest,
		"README.md":                      "# " + pluginID,
		"admin/manifest.json":            manifest,
		"admin/index.tsx":                "export default function Admin() { return null; }",
		"admin/index.js":                 "export default function Admin() { return null; }",
		"admin/styles.css":               "body{}",
		"admin/assets/logo.svg":          "<svg/>",
		"admin/.DS_Store":                "junk",
		"admin/src/raw.ts":               "export const raw = 1;",
		"admin/__tests__/admin.test.tsx": "test('x', () => {});",
		"api/manifest.json":              manifest,
		"api/index.ts":                   "export const api = {};",
		"api/index.js":                   "export const api = {};",
		"api/types.d.ts":                 "export declare const api: {};",
		"api/Thumbs.db":                  "junk",
		"api/node_modules/dep/index.js":  "module.exports = {};",
		"api/graphql/schema.graphql":     "type Query { ok: Boolean }",
		"api/graphql/resolvers.js.map":   "{}",
	}
}
