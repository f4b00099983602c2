package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, src string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(src), &v))
	return v
}

func validManifest() map[string]any {
	return map[string]any{
		"name":        "Demo",
		"pluginId":    "demo",
		"version":     "1.0.0",
		"description": "A demo plugin",
		"author":      "Plugin Team",
	}
}

func TestValidateManifest_Valid(t *testing.T) {
	t.Parallel()

	result := ValidateManifest(validManifest())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateManifest_NotAnObject(t *testing.T) {
	t.Parallel()

	for _, src := range []string{`null`, `[]`, `"manifest"`, `42`, `true`} {
		result := ValidateManifest(decode(t, src))
		assert.False(t, result.Valid, src)
		assert.Equal(t, []string{"Manifest must be an object"}, result.Errors, src)
	}
}

func TestValidateManifest_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remove  []string
		wantErr []string
	}{
		{
			name:    "one missing",
			remove:  []string{"author"},
			wantErr: []string{"Missing required field: author"},
		},
		{
			name:   "several missing reported in field order",
			remove: []string{"author", "name", "version"},
			wantErr: []string{
				"Missing required field: name",
				"Missing required field: version",
				"Missing required field: author",
			},
		},
		{
			name:   "all missing",
			remove: requiredFields,
			wantErr: []string{
				"Missing required field: name",
				"Missing required field: pluginId",
				"Missing required field: version",
				"Missing required field: description",
				"Missing required field: author",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := validManifest()
			for _, f := range tt.remove {
				delete(m, f)
			}
			result := ValidateManifest(m)
			assert.False(t, result.Valid)
			assert.Equal(t, tt.wantErr, result.Errors)
		})
	}
}

func TestValidateManifest_NullAndEmptyCountAsMissing(t *testing.T) {
	t.Parallel()

	result := ValidateManifest(decode(t, `{
		"name": null,
		"pluginId": "demo",
		"version": "1.0.0",
		"description": "",
		"author": "x"
	}`))

	assert.Equal(t, []string{
		"Missing required field: name",
		"Missing required field: description",
	}, result.Errors)
}

func TestValidateManifest_WrongTypes(t *testing.T) {
	t.Parallel()

	result := ValidateManifest(decode(t, `{
		"name": 7,
		"pluginId": ["demo"],
		"version": "1.0.0",
		"description": {"en": "x"},
		"author": false,
		"main": 1,
		"icon": "icon.svg"
	}`))

	assert.False(t, result.Valid)
	assert.Equal(t, []string{
		"Field name must be a string",
		"Field pluginId must be a string",
		"Field description must be a string",
		"Field author must be a string",
		"Field main must be a string",
	}, result.Errors)
}

func TestValidateManifest_PluginIDFormat(t *testing.T) {
	t.Parallel()

	const msg = "pluginId must contain only lowercase letters, numbers, hyphens, and underscores"

	for _, id := range []string{"Test-Plugin", "TEST_PLUGIN", "my plugin", "demo.plugin", "démo"} {
		m := validManifest()
		m["pluginId"] = id
		result := ValidateManifest(m)
		assert.False(t, result.Valid, id)
		assert.Contains(t, result.Errors, msg, id)
	}

	for _, id := range []string{"test-plugin", "my_plugin-2", "x", "-_-"} {
		m := validManifest()
		m["pluginId"] = id
		result := ValidateManifest(m)
		assert.NotContains(t, result.Errors, msg, id)
	}
}

func TestValidateManifest_VersionFormat(t *testing.T) {
	t.Parallel()

	const msg = "version must follow semantic versioning (major.minor.patch)"

	for _, v := range []string{"1.0", "v1.0.0", "1.0.0-beta", "1.0.0.0", "one.two.three", " 1.0.0"} {
		m := validManifest()
		m["version"] = v
		result := ValidateManifest(m)
		assert.False(t, result.Valid, v)
		assert.Equal(t, []string{msg}, result.Errors, v)
	}

	for _, v := range []string{"1.0.0", "0.0.1", "10.20.30"} {
		m := validManifest()
		m["version"] = v
		assert.True(t, ValidateManifest(m).Valid, v)
	}
}

func TestValidateManifest_Accumulates(t *testing.T) {
	t.Parallel()

	result := ValidateManifest(map[string]any{
		"name":     "Demo",
		"pluginId": "Bad Id",
		"version":  "1.0",
	})

	assert.Equal(t, []string{
		"Missing required field: description",
		"Missing required field: author",
		"pluginId must contain only lowercase letters, numbers, hyphens, and underscores",
		"version must follow semantic versioning (major.minor.patch)",
	}, result.Errors)
}

func TestValidationResult_Merge(t *testing.T) {
	t.Parallel()

	a := ValidationResult{Valid: true}
	b := ValidationResult{Valid: false, Errors: []string{"x"}}

	assert.True(t, a.Merge(a).Valid)
	merged := a.Merge(b).Merge(ValidationResult{Valid: false, Errors: []string{"y"}})
	assert.False(t, merged.Valid)
	assert.Equal(t, []string{"x", "y"}, merged.Errors)
}
