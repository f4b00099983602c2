package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIsAPIExtensionPoint(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"api", "api.graphql", "api:routes", "api_hooks", "api.graphql.query"} {
		assert.True(t, IsAPIExtensionPoint(id), id)
	}
	for _, id := range []string{"admin.menu", "apis", "apiary", "ap", "", "admin.api"} {
		assert.False(t, IsAPIExtensionPoint(id), id)
	}
}

func TestIsGraphQLExtensionPoint(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"api.graphql", "api.graphql.query", "api:graphql", "api_graphql"} {
		assert.True(t, IsGraphQLExtensionPoint(id), id)
	}
	for _, id := range []string{"api", "api.rest", "admin.graphql", "api.graphqlx", "api.schema.graphql"} {
		assert.False(t, IsGraphQLExtensionPoint(id), id)
	}
}

func TestValidateExtensionPoints_Absent(t *testing.T) {
	t.Parallel()

	result := ValidateExtensionPoints(context.Background(), validManifest(), t.TempDir())
	assert.True(t, result.Valid)

	result = ValidateExtensionPoints(context.Background(), "not a manifest", t.TempDir())
	assert.True(t, result.Valid)
}

func TestValidateExtensionPoints_Shape(t *testing.T) {
	t.Parallel()

	result := ValidateExtensionPoints(context.Background(), decode(t, `{"extensionPoints": []}`), t.TempDir())
	assert.Equal(t, []string{"extensionPoints must be an object"}, result.Errors)

	result = ValidateExtensionPoints(context.Background(), decode(t, `{"extensionPoints": {
		"admin.menu": {"name": "x"},
		"admin.dashboard": [42, {"file": "x.ts"}]
	}}`), t.TempDir())
	assert.Equal(t, []string{
		"Extension at admin.dashboard[0] must be an object",
		"Extension at admin.dashboard[1] is missing required field: name",
		"Extension point admin.menu must be an array",
	}, result.Errors)
}

func TestValidateExtensionPoints_DuplicateNamesAcrossPoints(t *testing.T) {
	t.Parallel()

	result := ValidateExtensionPoints(context.Background(), decode(t, `{"extensionPoints": {
		"admin.menu": [{"name": "orders"}],
		"admin.dashboard": [{"name": "orders"}, {"name": "stats"}, {"name": "stats"}]
	}}`), t.TempDir())

	assert.False(t, result.Valid)
	assert.Equal(t, []string{
		"Duplicate extension name: stats",
		"Duplicate extension name: orders",
	}, result.Errors)
}

func TestValidateExtensionPoints_APICategory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "api/graphql/resolvers.ts", "export const orderResolvers = {};\n")

	result := ValidateExtensionPoints(context.Background(), decode(t, `{"extensionPoints": {
		"api.graphql": [
			{"name": "orders", "type": "query", "file": "api/graphql/resolvers.ts", "builderDefinition": "orderResolvers"},
			{"name": "bogus", "type": "resolver", "file": "api/graphql/resolvers.ts"},
			{"name": "untyped", "file": "api/graphql/resolvers.ts"},
			{"name": "fileless", "type": "mutation"}
		],
		"api:routes": [
			{"name": "health", "type": "get", "file": "api/graphql/resolvers.ts"}
		]
	}}`), root)

	assert.Equal(t, []string{
		`Invalid graphql type "resolver" for extension bogus`,
		"Extension untyped in api.graphql is missing required field: type",
		"Missing file for extension fileless in api.graphql",
	}, result.Errors)
}

func TestValidateExtensionPoints_MissingFileSkipsExportCheck(t *testing.T) {
	t.Parallel()

	result := ValidateExtensionPoints(context.Background(), decode(t, `{"extensionPoints": {
		"api.graphql": [
			{"name": "orders", "type": "query", "file": "api/missing.ts", "builderDefinition": "orderResolvers"}
		]
	}}`), t.TempDir())

	assert.Equal(t, []string{"File api/missing.ts not found for extension orders"}, result.Errors)
}

func TestValidateExtensionPoints_EscapingPathsAreNotFound(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	root := filepath.Join(parent, "plugin")
	writeFile(t, parent, "secret.ts", "export const secret = 1;")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "api"), 0o755))

	result := ValidateExtensionPoints(context.Background(), decode(t, `{"extensionPoints": {
		"api": [
			{"name": "a", "type": "x", "file": "../secret.ts", "builderDefinition": "secret"},
			{"name": "b", "type": "x", "file": "/etc/hosts"},
			{"name": "c", "type": "x", "file": "api"}
		]
	}}`), root)

	assert.Equal(t, []string{
		"File ../secret.ts not found for extension a",
		"File /etc/hosts not found for extension b",
		"File api not found for extension c",
	}, result.Errors)
}

func TestValidateExtensionPoints_ExportCheck(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "admin/index.tsx", "const Dashboard = () => null;\nexport default Dashboard;\n")

	result := ValidateExtensionPoints(context.Background(), decode(t, `{"extensionPoints": {
		"admin.dashboard": [
			{"name": "dash", "file": "admin/index.tsx", "builderDefinition": "buildDashboard"}
		]
	}}`), root)

	assert.Equal(t, []string{"buildDashboard is not exported from admin/index.tsx"}, result.Errors)
}

func TestValidateExtensionPoints_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := ValidateExtensionPoints(ctx, decode(t, `{"extensionPoints": {"admin.menu": [{"name": "a"}]}}`), t.TempDir())
	assert.False(t, result.Valid)
	assert.Equal(t, []string{context.Canceled.Error()}, result.Errors)
}

func TestHasNamedExport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		want   bool
	}{
		{name: "const", source: "export const build = () => {}", want: true},
		{name: "let", source: "export let build = 1", want: true},
		{name: "var", source: "export var build = 1", want: true},
		{name: "function", source: "export function build() {}", want: true},
		{name: "async function", source: "export async function build() {}", want: true},
		{name: "generator", source: "export function* build() {}", want: true},
		{name: "class", source: "export class build {}", want: true},
		{name: "default function", source: "export default function build() {}", want: true},
		{name: "list", source: "const build = 1;\nexport { other, build };", want: true},
		{name: "aliased", source: "const b = 1;\nexport { b as build };", want: true},
		{name: "multiline list", source: "export {\n  a,\n  build,\n};", want: true},

		{name: "not exported", source: "const build = 1;", want: false},
		{name: "prefix only", source: "export const buildAll = 1;", want: false},
		{name: "suffix only", source: "export const rebuild = 1;", want: false},
		{name: "default expression", source: "export default build;", want: false},
		{name: "dollar suffix declared", source: "export const build$ = 1;", want: false},
		{name: "dollar suffix listed", source: "export { build$ };", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HasNamedExport(tt.source, "build"))
		})
	}

	assert.False(t, HasNamedExport("export const x = 1", ""))

	dollar := []struct {
		source, name string
	}{
		{"const a = 1;\nexport { a as store$ };", "store$"},
		{"export const $store = writable(0);", "$store"},
		{"export function $$render() {}", "$$render"},
		{"export { $ };", "$"},
	}
	for _, d := range dollar {
		assert.True(t, HasNamedExport(d.source, d.name), d.source)
	}
	assert.False(t, HasNamedExport("export { store$ };", "store"))
}
