package manifest

import (
	"regexp"

	"github.com/felixgeelhaar/pluginkit/internal/validation"
)

// requiredFields are checked in this order; messages follow it.
var requiredFields = []string{"name", "pluginId", "version", "description", "author"}

// optionalStringFields must be strings when present.
var optionalStringFields = []string{"main", "icon"}

// versionRegex accepts strict major.minor.patch only: no "v" prefix, no
// pre-release or build metadata.
var versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Validation messages.
const (
	msgNotObject       = "Manifest must be an object"
	msgInvalidPluginID = "pluginId must contain only lowercase letters, numbers, hyphens, and underscores"
	msgInvalidVersion  = "version must follow semantic versioning (major.minor.patch)"
)

// ValidateManifest checks a decoded manifest value. All checks run and every
// failure is reported.
func ValidateManifest(v any) ValidationResult {
	ve := &ValidationError{}

	obj, ok := v.(map[string]any)
	if !ok {
		ve.Add(msgNotObject)
		return ve.Result()
	}

	for _, field := range requiredFields {
		value, present := obj[field]
		if !present || value == nil || value == "" {
			ve.Addf("Missing required field: %s", field)
			continue
		}
		if _, isStr := value.(string); !isStr {
			ve.Addf("Field %s must be a string", field)
		}
	}

	for _, field := range optionalStringFields {
		value, present := obj[field]
		if !present || value == nil {
			continue
		}
		if _, isStr := value.(string); !isStr {
			ve.Addf("Field %s must be a string", field)
		}
	}

	if id, isStr := obj["pluginId"].(string); isStr && id != "" && !validation.IsValidPluginID(id) {
		ve.Add(msgInvalidPluginID)
	}

	if version, isStr := obj["version"].(string); isStr && version != "" && !versionRegex.MatchString(version) {
		ve.Add(msgInvalidVersion)
	}

	return ve.Result()
}
