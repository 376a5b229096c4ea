// Package policy names the rules that decide whether a follow-up stage runs.
package policy

import (
	"fmt"
	"strings"
)

// Policy selects how the secondary and tertiary stages are gated.
type Policy string

const (
	// SkipOnBlankQuery runs the secondary stage only when the primary output
	// is non-empty and the primary term string is non-blank, and the tertiary
	// stage only when both earlier term strings are non-blank. A stage skipped
	// for a blank earlier query passes its input through unchanged.
	SkipOnBlankQuery Policy = "skip_on_blank_query"
	// SkipOnEmptyInput runs each follow-up stage only when the previous stage
	// produced at least one row. Blank queries run as no-op filters.
	SkipOnEmptyInput Policy = "skip_on_empty_input"
)

// Default is the policy used when none is configured.
const Default = SkipOnBlankQuery

// IsValid checks if the policy is one of the supported values.
func (p Policy) IsValid() bool {
	return p == SkipOnBlankQuery || p == SkipOnEmptyInput
}

// Parse converts user input to a Policy. Empty input yields Default.
func Parse(s string) (Policy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Default, nil
	}
	p := Policy(strings.ReplaceAll(s, "-", "_"))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid stage policy: %q", s)
	}
	return p, nil
}
