// Package matcher decides which note texts satisfy a stage's terms.
//
// A stage compiles its terms once (Compile), counts per row how many distinct
// terms occur in the note (Count), and gates the counts against the stage
// threshold (Gate). A stage with no terms passes every row.
package matcher

import (
	"database/sql"
	"regexp"
	"strings"

	"github.com/kailas-cloud/claimsearch/internal/domain/search/mode"
)

// Matcher is a compiled, read-only set of terms for one match mode.
// It is safe for concurrent use.
type Matcher struct {
	mode  mode.Mode
	terms []term
}

type term struct {
	lower string
	re    *regexp.Regexp // whole-word mode only
}

// Compile prepares terms for matching. Terms are escaped, never interpreted
// as pattern syntax. Empty terms are ignored.
func Compile(terms []string, m mode.Mode) *Matcher {
	if !m.IsValid() {
		m = mode.Default
	}
	out := &Matcher{mode: m, terms: make([]term, 0, len(terms))}
	for _, t := range terms {
		if t == "" {
			continue
		}
		ct := term{lower: strings.ToLower(t)}
		if m == mode.WholeWord {
			ct.re = wholeWordPattern(t)
		}
		out.terms = append(out.terms, ct)
	}
	return out
}

// wholeWordPattern matches t literally, case-insensitively, between word boundaries.
func wholeWordPattern(t string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
}

// Mode returns the match strategy.
func (m *Matcher) Mode() mode.Mode { return m.mode }

// Len returns the number of compiled terms.
func (m *Matcher) Len() int { return len(m.terms) }

// Count returns how many distinct terms occur in text. Each term counts at
// most once. A missing text counts zero.
func (m *Matcher) Count(text sql.NullString) int {
	if !text.Valid || text.String == "" || len(m.terms) == 0 {
		return 0
	}
	n := 0
	switch m.mode {
	case mode.Substring:
		lower := strings.ToLower(text.String)
		for _, t := range m.terms {
			if strings.Contains(lower, t.lower) {
				n++
			}
		}
	default:
		for _, t := range m.terms {
			if t.re.MatchString(text.String) {
				n++
			}
		}
	}
	return n
}

// Mask evaluates every text and gates the counts against threshold.
// With no terms every row passes regardless of threshold.
func (m *Matcher) Mask(texts []sql.NullString, threshold int) Mask {
	if len(m.terms) == 0 {
		return AllPass(len(texts))
	}
	counts := make([]int, len(texts))
	for i, text := range texts {
		counts[i] = m.Count(text)
	}
	return Gate(counts, threshold)
}

// Matches reports whether term occurs in text under the given mode.
// A missing text never matches, and neither does an empty term.
func Matches(text sql.NullString, t string, m mode.Mode) bool {
	if t == "" {
		return false
	}
	return Compile([]string{t}, m).Count(text) == 1
}

// CountMatches returns how many of terms occur in text under the given mode.
func CountMatches(text sql.NullString, terms []string, m mode.Mode) int {
	return Compile(terms, m).Count(text)
}

// Evaluate computes the stage mask for texts: rows whose distinct term-match
// count reaches threshold. An empty term list yields an all-true mask.
// threshold is expected to be already clamped to [1, max(1, len(terms))].
func Evaluate(texts []sql.NullString, terms []string, threshold int, m mode.Mode) Mask {
	return Compile(terms, m).Mask(texts, threshold)
}
