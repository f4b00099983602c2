package archive

import (
	"fmt"
	"strings"
)

// Mode is the archive build mode.
type Mode int

const (
	// Development archives everything except OS junk.
	Development Mode = iota
	// Production archives only policy-approved runtime files.
	Production
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Development:
		return "development"
	case Production:
		return "production"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Suffix returns the archive file name suffix for the mode.
func (m Mode) Suffix() string {
	if m == Production {
		return "prod"
	}
	return "dev"
}

// ParseMode parses "dev", "development", "prod" or "production".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return Development, nil
	case "prod", "production":
		return Production, nil
	default:
		return Development, fmt.Errorf("%w: %q (want dev or prod)", ErrUnknownMode, s)
	}
}
