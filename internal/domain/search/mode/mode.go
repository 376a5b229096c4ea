package mode

import (
	"fmt"
	"strings"
)

// Mode is the term match strategy applied to note text.
type Mode string

// Match mode constants.
const (
	// WholeWord requires the term to appear bounded by word boundaries.
	WholeWord Mode = "whole_word"
	// Substring accepts the term anywhere in the text.
	Substring Mode = "substring"
)

// Default is the mode used when none is requested.
const Default = WholeWord

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == WholeWord || m == Substring
}

// Parse converts user input to a Mode. Empty input yields Default.
// Accepts the UI labels "exact" and "any" as aliases.
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Default, nil
	case string(WholeWord), "exact", "whole-word", "word":
		return WholeWord, nil
	case string(Substring), "any", "partial", "contains":
		return Substring, nil
	default:
		return "", fmt.Errorf("invalid match mode: %q", s)
	}
}
