// Package selection holds the settable state behind the filter form: the full
// option set of each field and the values currently selected.
package selection

import (
	"slices"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

// Default selections offered before the user changes anything.
var (
	DefaultClaimTypes = []string{"SUIT", "CLAIM", "ALERT"}
	DefaultLossTypes  = []string{"PROF LIAB", "GEN LIAB", "ADMIN"}
)

// defaultLeading is how many leading options are preselected for agency fields.
const defaultLeading = 3

// Multi is a multi-select: its option set and the currently selected subset.
// It is owned by a single form and is not safe for concurrent use.
type Multi struct {
	options  []string
	selected []string
}

// NewMulti creates a multi-select preselecting the defaults that exist in options.
func NewMulti(options, defaults []string) *Multi {
	m := &Multi{options: slices.Clone(options)}
	m.Set(defaults)
	return m
}

// Options returns the full option set.
func (m *Multi) Options() []string { return slices.Clone(m.options) }

// Selected returns the selected values in option order.
func (m *Multi) Selected() []string { return slices.Clone(m.selected) }

// Set replaces the selection, dropping values that are not options.
func (m *Multi) Set(values []string) {
	selected := make([]string, 0, len(values))
	for _, o := range m.options {
		if slices.Contains(values, o) {
			selected = append(selected, o)
		}
	}
	m.selected = selected
}

// SelectAll selects every option.
func (m *Multi) SelectAll() { m.selected = slices.Clone(m.options) }

// Clear deselects everything.
func (m *Multi) Clear() { m.selected = []string{} }

// ToggleAll selects every option when all is true and clears otherwise.
func (m *Multi) ToggleAll(all bool) {
	if all {
		m.SelectAll()
		return
	}
	m.Clear()
}

// AllSelected reports whether every option is selected.
func (m *Multi) AllSelected() bool { return len(m.selected) == len(m.options) }

// SetOptions replaces the option set, keeping only still-valid selections.
func (m *Multi) SetOptions(options []string) {
	prev := m.selected
	m.options = slices.Clone(options)
	m.Set(prev)
}

// Options is the option set and default selection for a base record set.
type Options struct {
	Values      map[claim.Field][]string
	AgencyNames []string
	YearMin     int
	YearMax     int
	HasYears    bool
	Defaults    Defaults
}

// Defaults is the initial selection of the filter form.
type Defaults struct {
	ClaimTypes    []string
	LossTypes     []string
	AgencyParents []string
	AgencyNames   []string
	YearFrom      int
	YearTo        int
}

// OptionsFor computes option sets for base. Agency-name options are limited to
// the given parents; nil parents means the default parents, and an empty
// non-nil slice means every agency name.
func OptionsFor(base claim.Set, parents []string) Options {
	values := make(map[claim.Field][]string, len(claim.CategoricalFields))
	for _, f := range claim.CategoricalFields {
		values[f] = base.Values(f)
	}

	defParents := leading(values[claim.AgencyParent], defaultLeading)
	if parents == nil {
		parents = defParents
	}
	names := AgencyNamesFor(base, parents)

	lo, hi, ok := base.YearBounds()
	return Options{
		Values:      values,
		AgencyNames: names,
		YearMin:     lo,
		YearMax:     hi,
		HasYears:    ok,
		Defaults: Defaults{
			ClaimTypes:    NewMulti(values[claim.ClaimType], DefaultClaimTypes).Selected(),
			LossTypes:     NewMulti(values[claim.LossType], DefaultLossTypes).Selected(),
			AgencyParents: defParents,
			AgencyNames:   leading(names, defaultLeading),
			YearFrom:      lo,
			YearTo:        hi,
		},
	}
}

// AgencyNamesFor returns the sorted distinct agency names under the given
// parents, or all agency names when parents is empty.
func AgencyNamesFor(base claim.Set, parents []string) []string {
	scoped := base
	if len(parents) > 0 {
		scoped = base.Select(func(r *claim.Record) bool {
			p, ok := r.Value(claim.AgencyParent)
			return ok && slices.Contains(parents, p)
		})
	}
	names := scoped.Values(claim.AgencyName)
	slices.Sort(names)
	return names
}

func leading(values []string, n int) []string {
	if len(values) > n {
		return slices.Clone(values[:n])
	}
	return slices.Clone(values)
}
