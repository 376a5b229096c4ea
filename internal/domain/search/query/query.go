package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/claimsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/terms"
)

// MaxRawLength is the maximum allowed length of a raw term string.
const MaxRawLength = 4096

// Query is one stage's validated search configuration.
// Terms are parsed once at construction and reused for the stage's lifetime.
type Query struct {
	raw       string
	terms     []string
	matchMode mode.Mode
	threshold int
}

// New validates and normalizes stage parameters.
// Defaults: mode=whole_word. The threshold is clamped to [1, max(1, len(terms))].
func New(raw string, m mode.Mode, threshold int) (Query, error) {
	if len(raw) > MaxRawLength {
		return Query{}, fmt.Errorf("search terms too long (max %d chars)", MaxRawLength)
	}
	if m == "" {
		m = mode.Default
	}
	if !m.IsValid() {
		return Query{}, fmt.Errorf("invalid match mode: %q", m)
	}

	parsed := terms.Parse(raw)
	return Query{
		raw:       raw,
		terms:     parsed,
		matchMode: m,
		threshold: terms.ClampThreshold(threshold, parsed),
	}, nil
}

// Blank returns a query with no terms, which matches every row.
func Blank(m mode.Mode) Query {
	if !m.IsValid() {
		m = mode.Default
	}
	return Query{terms: []string{}, matchMode: m, threshold: 1}
}

// Raw returns the term string as supplied.
func (q *Query) Raw() string { return q.raw }

// Terms returns the parsed terms. Callers must not modify the slice.
func (q *Query) Terms() []string { return q.terms }

// Mode returns the match strategy.
func (q *Query) Mode() mode.Mode { return q.matchMode }

// Threshold returns the clamped minimum number of distinct matching terms.
func (q *Query) Threshold() int { return q.threshold }

// IsBlank reports whether the raw term string is empty or whitespace only.
func (q *Query) IsBlank() bool { return strings.TrimSpace(q.raw) == "" }

// HasTerms reports whether at least one term was parsed.
func (q *Query) HasTerms() bool { return len(q.terms) > 0 }
