package filter

import (
	"fmt"

	"github.com/kailas-cloud/claimsearch/internal/domain"
	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

// MaxValuesPerCondition is the maximum number of allowed values per field.
const MaxValuesPerCondition = 1024

// Expression selects records whose categorical fields belong to allowed-value
// sets and whose asserted year falls within an inclusive range.
// All conditions must hold.
type Expression struct {
	conditions    []Condition
	years         *YearRange
	missingPasses bool
}

// NewExpression validates and creates a filter Expression.
// years may be nil for no year constraint. When missingPasses is set, a record
// with a missing value in a constrained field passes that field's condition.
func NewExpression(conditions []Condition, years *YearRange, missingPasses bool) (Expression, error) {
	seen := make(map[claim.Field]struct{}, len(conditions))
	for _, c := range conditions {
		if _, dup := seen[c.field]; dup {
			return Expression{}, fmt.Errorf("duplicate condition for field %q", c.field)
		}
		seen[c.field] = struct{}{}
	}
	return Expression{conditions: conditions, years: years, missingPasses: missingPasses}, nil
}

// Conditions returns the categorical conditions.
func (e Expression) Conditions() []Condition { return e.conditions }

// Years returns the year range, or nil when unconstrained.
func (e Expression) Years() *YearRange { return e.years }

// MissingPasses reports whether missing values pass their field's condition.
func (e Expression) MissingPasses() bool { return e.missingPasses }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.conditions) == 0 && e.years == nil
}

// Matches reports whether the record satisfies every condition.
func (e Expression) Matches(r *claim.Record) bool {
	for _, c := range e.conditions {
		v, ok := r.Value(c.field)
		if !ok {
			if e.missingPasses {
				continue
			}
			return false
		}
		if !c.Allows(v) {
			return false
		}
	}
	if e.years != nil {
		if !r.HasYear() {
			return e.missingPasses
		}
		return e.years.Contains(r.AssertedYear())
	}
	return true
}

// Apply returns the records of s that satisfy the expression, in order.
func (e Expression) Apply(s claim.Set) claim.Set {
	if e.IsEmpty() {
		return s
	}
	return s.Select(e.Matches)
}

// Condition restricts a categorical field to a set of allowed values.
// An empty value set allows nothing.
type Condition struct {
	field   claim.Field
	values  []string
	allowed map[string]struct{}
}

// NewIn creates a set-membership condition.
func NewIn(f claim.Field, values []string) (Condition, error) {
	if f == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if !f.IsValid() {
		return Condition{}, fmt.Errorf("%w %q", domain.ErrUnknownField, f)
	}
	if len(values) > MaxValuesPerCondition {
		return Condition{}, fmt.Errorf("too many values for field %q (max %d)", f, MaxValuesPerCondition)
	}
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return Condition{field: f, values: values, allowed: allowed}, nil
}

// Field returns the constrained field.
func (c Condition) Field() claim.Field { return c.field }

// Values returns the allowed values as supplied.
func (c Condition) Values() []string { return c.values }

// Allows reports whether v is an allowed value.
func (c Condition) Allows(v string) bool {
	_, ok := c.allowed[v]
	return ok
}

// YearRange is an inclusive range of asserted years.
type YearRange struct {
	from int
	to   int
}

// NewYearRange validates and creates an inclusive year range.
func NewYearRange(from, to int) (YearRange, error) {
	if from <= 0 || to <= 0 {
		return YearRange{}, fmt.Errorf("year bounds must be positive")
	}
	if from > to {
		return YearRange{}, fmt.Errorf("year_from %d is after year_to %d", from, to)
	}
	return YearRange{from: from, to: to}, nil
}

// From returns the lower inclusive bound.
func (y YearRange) From() int { return y.from }

// To returns the upper inclusive bound.
func (y YearRange) To() int { return y.to }

// Contains reports whether year lies within the range.
func (y YearRange) Contains(year int) bool {
	return year >= y.from && year <= y.to
}
