package mcp

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/pluginkit/internal/domain/archive"
	"github.com/felixgeelhaar/pluginkit/internal/validation"
)

// ValidateValidateInput validates ValidateInput fields.
func ValidateValidateInput(in *ValidateInput) error {
	if err := validation.ValidatePluginName(in.Plugin); err != nil {
		return fmt.Errorf("invalid plugin: %w", err)
	}
	return nil
}

// ValidatePackageInput validates PackageInput fields and returns the parsed
// mode. An empty mode means development.
func ValidatePackageInput(in *PackageInput) (archive.Mode, error) {
	if err := validation.ValidatePluginName(in.Plugin); err != nil {
		return archive.Development, fmt.Errorf("invalid plugin: %w", err)
	}
	if in.Mode == "" {
		return archive.Development, nil
	}
	mode, err := archive.ParseMode(in.Mode)
	if err != nil {
		return archive.Development, fmt.Errorf("invalid mode: %w", err)
	}
	return mode, nil
}

// ValidateScaffoldInput validates ScaffoldInput fields.
func ValidateScaffoldInput(in *ScaffoldInput) error {
	if err := validation.ValidateScaffoldName(in.Name); err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}
	return nil
}

// ValidateVerifyInput validates VerifyInput fields. The archive must be a
// bare .zip file name.
func ValidateVerifyInput(in *VerifyInput) error {
	if err := validation.ValidateRelativePath(in.Archive); err != nil {
		return fmt.Errorf("invalid archive: %w", err)
	}
	if filepath.Base(in.Archive) != in.Archive || strings.ContainsAny(in.Archive, `/\`) {
		return fmt.Errorf("invalid archive: %w: %q must be a file name", validation.ErrInvalidPath, in.Archive)
	}
	if !strings.EqualFold(filepath.Ext(in.Archive), ".zip") {
		return fmt.Errorf("invalid archive: %w: %q is not a .zip file", validation.ErrInvalidPath, in.Archive)
	}
	return nil
}
