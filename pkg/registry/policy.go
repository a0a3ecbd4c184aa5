package registry

import (
	"fmt"
	"strings"
)

// OverwritePolicy decides what happens when a registration targets a slot
// (location path or default) that already holds a backend.
type OverwritePolicy int

const (
	// PolicyError fails the registration with ErrAlreadyExists.
	PolicyError OverwritePolicy = iota
	// PolicyIgnore keeps the existing backend and carries on.
	PolicyIgnore
	// PolicyOverwrite replaces the existing backend.
	PolicyOverwrite
)

func (p OverwritePolicy) String() string {
	switch p {
	case PolicyError:
		return "error"
	case PolicyIgnore:
		return "ignore"
	case PolicyOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("OverwritePolicy(%d)", int(p))
	}
}

// ParsePolicy parses "error", "ignore" or "overwrite" (case-insensitive).
func ParsePolicy(s string) (OverwritePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return PolicyError, nil
	case "ignore":
		return PolicyIgnore, nil
	case "overwrite":
		return PolicyOverwrite, nil
	}
	return PolicyError, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}
