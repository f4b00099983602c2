package manifest

import (
	"context"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/felixgeelhaar/pluginkit/internal/validation"
)

// graphqlTypes are the accepted "type" values under GraphQL extension points.
var graphqlTypes = map[string]bool{
	"query":        true,
	"mutation":     true,
	"subscription": true,
	"type":         true,
}

// IsAPIExtensionPoint reports whether id names an API-category extension
// point: "api" itself or an id prefixed with "api.", "api:" or "api_".
func IsAPIExtensionPoint(id string) bool {
	if id == "api" {
		return true
	}
	if len(id) < 4 || !strings.HasPrefix(id, "api") {
		return false
	}
	return isSegmentSeparator(rune(id[3]))
}

// IsGraphQLExtensionPoint reports whether id is an API extension point whose
// next segment is "graphql", e.g. "api.graphql" or "api.graphql.query".
func IsGraphQLExtensionPoint(id string) bool {
	if !IsAPIExtensionPoint(id) || id == "api" {
		return false
	}
	segments := strings.FieldsFunc(id[4:], isSegmentSeparator)
	return len(segments) > 0 && segments[0] == "graphql"
}

func isSegmentSeparator(r rune) bool {
	return r == '.' || r == ':' || r == '_'
}

// ValidateExtensionPoints checks the extensionPoints declared by a decoded
// manifest. Referenced files are resolved relative to root. Extension point
// ids are visited in sorted order so messages are deterministic. A value that
// is not a manifest object has no extension points.
func ValidateExtensionPoints(ctx context.Context, v any, root string) ValidationResult {
	ve := &ValidationError{}

	obj, ok := v.(map[string]any)
	if !ok {
		return ve.Result()
	}

	raw, present := obj["extensionPoints"]
	if !present || raw == nil {
		return ve.Result()
	}

	points, ok := raw.(map[string]any)
	if !ok {
		ve.Add("extensionPoints must be an object")
		return ve.Result()
	}

	ids := make([]string, 0, len(points))
	for id := range points {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seen := make(map[string]bool)
	for _, id := range ids {
		entries, ok := points[id].([]any)
		if !ok {
			ve.Addf("Extension point %s must be an array", id)
			continue
		}

		for i, rawEntry := range entries {
			if err := ctx.Err(); err != nil {
				ve.Add(err.Error())
				return ve.Result()
			}
			validateExtension(ve, seen, id, i, rawEntry, root)
		}
	}

	return ve.Result()
}

func validateExtension(ve *ValidationError, seen map[string]bool, id string, index int, rawEntry any, root string) {
	entry, ok := rawEntry.(map[string]any)
	if !ok {
		ve.Addf("Extension at %s[%d] must be an object", id, index)
		return
	}

	name := stringField(entry, "name")
	if name == "" {
		ve.Addf("Extension at %s[%d] is missing required field: name", id, index)
		return
	}

	if seen[name] {
		ve.Addf("Duplicate extension name: %s", name)
	}
	seen[name] = true

	isAPI := IsAPIExtensionPoint(id)
	if isAPI {
		typ := stringField(entry, "type")
		switch {
		case typ == "":
			ve.Addf("Extension %s in %s is missing required field: type", name, id)
		case IsGraphQLExtensionPoint(id) && !graphqlTypes[typ]:
			ve.Addf("Invalid graphql type %q for extension %s", typ, name)
		}
	}

	file := stringField(entry, "file")
	if file == "" {
		if isAPI {
			ve.Addf("Missing file for extension %s in %s", name, id)
		}
		return
	}

	path, found := resolveFile(root, file)
	if !found {
		ve.Addf("File %s not found for extension %s", file, name)
		return
	}

	builder := stringField(entry, "builderDefinition")
	if builder == "" {
		return
	}

	source, err := os.ReadFile(path)
	if err != nil || !HasNamedExport(string(source), builder) {
		ve.Addf("%s is not exported from %s", builder, file)
	}
}

// resolveFile resolves a manifest-relative file. Absolute paths, paths that
// escape root and directories count as not found.
func resolveFile(root, file string) (string, bool) {
	path, err := validation.ResolveWithin(root, file)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

func stringField(entry map[string]any, key string) string {
	s, _ := entry[key].(string)
	return s
}

// HasNamedExport reports whether source textually exports name. Recognized
// forms: export const|let|var|function|class <name>, export async function
// <name>, export default function|class <name>, and export { ... name ... }
// including "x as name". This is a textual heuristic: matches inside comments
// or strings count. Identifiers compare whole, so "$" is part of a name.
func HasNamedExport(source, name string) bool {
	if name == "" {
		return false
	}
	for _, m := range exportDeclaration.FindAllStringSubmatch(source, -1) {
		if m[1] == name {
			return true
		}
	}
	for _, m := range exportList.FindAllStringSubmatch(source, -1) {
		if slices.Contains(identifier.FindAllString(m[1], -1), name) {
			return true
		}
	}
	return false
}

var (
	identifier        = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
	exportDeclaration = regexp.MustCompile(
		`\bexport\s+(?:default\s+)?(?:async\s+)?(?:const|let|var|function\*?|class)\s+([A-Za-z_$][\w$]*)`)
	exportList = regexp.MustCompile(`\bexport\s*(?:type\s*)?\{([^}]*)\}`)
)
