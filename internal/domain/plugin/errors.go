package plugin

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a plugin directory does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin not found: %s", e.Path)
}

// IsNotFound returns true if the error indicates a missing plugin.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// DiscoveryError represents an error loading a specific plugin.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("loading plugin at %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
