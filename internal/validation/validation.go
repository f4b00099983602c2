// Package validation provides input validation for values that reach the file
// system or an external process: plugin names, plugin ids, relative paths and
// configured commands.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Common validation errors.
var (
	ErrEmptyInput        = errors.New("input cannot be empty")
	ErrInvalidPluginName = errors.New("invalid plugin name")
	ErrInvalidPluginID   = errors.New("invalid plugin id")
	ErrPathTraversal     = errors.New("path traversal detected")
	ErrInvalidPath       = errors.New("invalid path")
	ErrCommandInjection  = errors.New("potential command injection detected")
	ErrInvalidCommand    = errors.New("invalid command")
)

const maxNameLength = 128

var (
	// pluginNameRegex matches names accepted by the test-runner gate.
	// Examples: "hello-world", "Stripe_Payments", "map2"
	pluginNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// pluginIDRegex matches manifest plugin ids.
	// Examples: "test-plugin", "my_plugin-2"
	pluginIDRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

	// scaffoldNameRegex matches names accepted by the skeleton generator. It is
	// pluginNameRegex with a leading letter or digit, so every generated plugin
	// can be gated and addressed by name.
	// Examples: "Demo", "order-history", "stripe_v2"
	scaffoldNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

	// commandRegex matches executable names or paths for configured tools.
	// Examples: "npx", "npm", "./node_modules/.bin/tsc"
	commandRegex = regexp.MustCompile(`^[A-Za-z0-9_./-][A-Za-z0-9_./@+-]*$`)

	// shellMetaChars contains shell metacharacters that could enable injection
	shellMetaChars = []string{";", "|", "&", "$", "`", "(", ")", "{", "}", "<", ">", "\n", "\r", "\\"}
)

// ValidatePluginName validates a plugin name before it is interpolated into a
// test command or a path under the plugins root.
func ValidatePluginName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}

	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrInvalidPluginName, maxNameLength)
	}

	if !pluginNameRegex.MatchString(name) {
		if containsShellMeta(name) {
			return fmt.Errorf("%w: %w: %q contains shell metacharacters", ErrInvalidPluginName, ErrCommandInjection, name)
		}
		return fmt.Errorf("%w: %q must contain only letters, numbers, hyphens, and underscores", ErrInvalidPluginName, name)
	}

	return nil
}

// IsValidPluginID reports whether id is a valid manifest plugin id.
func IsValidPluginID(id string) bool {
	return pluginIDRegex.MatchString(id)
}

// ValidatePluginID validates a manifest plugin id.
func ValidatePluginID(id string) error {
	if id == "" {
		return ErrEmptyInput
	}
	if !IsValidPluginID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidPluginID, id)
	}
	return nil
}

// ValidateScaffoldName validates the name given to the skeleton generator.
// The name becomes a directory under the plugins root.
func ValidateScaffoldName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyInput
	}

	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrInvalidPluginName, maxNameLength)
	}

	if !scaffoldNameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q must start with a letter or number and contain only letters, numbers, hyphens, and underscores", ErrInvalidPluginName, name)
	}

	return nil
}

// ValidateCommand validates a configured executable name. Arguments are passed
// to the process directly, never through a shell.
func ValidateCommand(command string) error {
	if command == "" {
		return ErrEmptyInput
	}

	if containsShellMeta(command) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, command)
	}

	if !commandRegex.MatchString(command) {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, command)
	}

	return nil
}

// ValidateRelativePath validates a manifest-supplied path. It must be relative,
// contain no null bytes and not climb out of the directory it is resolved in.
func ValidateRelativePath(path string) error {
	if path == "" {
		return ErrEmptyInput
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: path contains null byte", ErrInvalidPath)
	}

	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidPath, path)
	}

	if containsPathTraversal(path) {
		return fmt.Errorf("%w: %q contains traversal sequence", ErrPathTraversal, path)
	}

	return nil
}

// ResolveWithin joins a relative path onto base and returns the result,
// failing when the path is invalid or would resolve outside base.
func ResolveWithin(base, path string) (string, error) {
	if err := ValidateRelativePath(path); err != nil {
		return "", err
	}

	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, filepath.FromSlash(path))

	rel, err := filepath.Rel(cleanBase, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes base directory %q", ErrPathTraversal, path, base)
	}

	return joined, nil
}

// containsShellMeta checks if a string contains shell metacharacters.
func containsShellMeta(s string) bool {
	for _, char := range shellMetaChars {
		if strings.Contains(s, char) {
			return true
		}
	}
	return false
}

// containsPathTraversal checks for common path traversal patterns.
func containsPathTraversal(path string) bool {
	normalized := filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))

	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return true
		}
	}

	lower := strings.ToLower(path)
	return strings.Contains(lower, "%2e%2e")
}
