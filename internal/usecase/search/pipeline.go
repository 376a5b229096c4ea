package search

import (
	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/policy"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/query"
	"github.com/kailas-cloud/claimsearch/internal/matcher"
)

// Stage identifies one of the chained text searches.
type Stage string

// Pipeline stages in execution order.
const (
	Primary   Stage = "primary"
	Secondary Stage = "secondary"
	Tertiary  Stage = "tertiary"
)

// Stages lists the stages in execution order.
var Stages = [3]Stage{Primary, Secondary, Tertiary}

// Status is the lifecycle state of a stage within one run.
type Status string

// Stage statuses.
const (
	Pending Status = "pending"
	Ran     Status = "ran"
	Skipped Status = "skipped"
)

// SkipReason explains why a stage did not run.
type SkipReason string

// Skip reasons.
const (
	SkipNone       SkipReason = ""
	SkipEmptyInput SkipReason = "empty_input"
	SkipBlankQuery SkipReason = "blank_query"
)

// StageReport is the observable outcome of one stage.
// Matched is the sum of the stage's own mask and is zero unless the stage ran.
type StageReport struct {
	Stage      Stage
	Status     Status
	SkipReason SkipReason
	Query      query.Query
	InputRows  int
	Matched    int
}

// Outcome is the terminal state of a pipeline run.
type Outcome struct {
	Policy   policy.Policy
	Result   claim.Set
	Stages   [3]StageReport
	Warnings []string
}

// Report returns the report for stage st.
func (o *Outcome) Report(st Stage) StageReport {
	for _, r := range o.Stages {
		if r.Stage == st {
			return r
		}
	}
	return StageReport{Stage: st, Status: Pending}
}

// LastRan returns the last stage that ran. Primary always runs.
func (o *Outcome) LastRan() Stage {
	last := Primary
	for _, r := range o.Stages {
		if r.Status == Ran {
			last = r.Stage
		}
	}
	return last
}

// RunStage filters input down to the rows matching q and returns them with
// the number of matched rows. Order and row identity are preserved.
func RunStage(q query.Query, input claim.Set) (claim.Set, int) {
	// The mask is evaluated over input's own notes, so it is aligned with input.
	mask := matcher.Evaluate(input.SearchNotes(), q.Terms(), q.Threshold(), q.Mode())
	out := input.SelectAt(func(i int) bool { return mask[i] })
	return out, mask.Sum()
}

// Pipeline chains primary, secondary and tertiary stages under a policy.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	policy   policy.Policy
	observer StageObserver
}

// NewPipeline creates a pipeline. An invalid policy falls back to policy.Default.
func NewPipeline(p policy.Policy) *Pipeline {
	if !p.IsValid() {
		p = policy.Default
	}
	return &Pipeline{policy: p}
}

// WithObserver sets a stage observer.
func (p *Pipeline) WithObserver(o StageObserver) *Pipeline {
	p.observer = o
	return p
}

// Policy returns the stage-gating policy.
func (p *Pipeline) Policy() policy.Policy { return p.policy }

// Run executes the stages against the filtered base set.
func (p *Pipeline) Run(filtered claim.Set, primary, secondary, tertiary query.Query) Outcome {
	r := run{pipeline: p, working: filtered}
	r.out.Policy = p.policy
	for i, st := range Stages {
		r.out.Stages[i] = StageReport{Stage: st, Status: Pending}
	}

	r.exec(0, primary, "No records found after primary search.")

	switch p.policy {
	case policy.SkipOnEmptyInput:
		r.gateOnEmptyInput(secondary, tertiary)
	default:
		r.gateOnBlankQuery(primary, secondary, tertiary)
	}

	r.out.Result = r.working
	return r.out
}

type run struct {
	pipeline *Pipeline
	working  claim.Set
	out      Outcome
}

func (r *run) gateOnEmptyInput(secondary, tertiary query.Query) {
	if r.working.IsEmpty() {
		r.skip(1, secondary, SkipEmptyInput)
	} else {
		r.exec(1, secondary, "No records found after secondary search.")
	}

	if r.out.Stages[1].Status != Ran || r.working.IsEmpty() {
		r.skip(2, tertiary, SkipEmptyInput)
		return
	}
	r.exec(2, tertiary, "No records found after tertiary search.")
}

// gateOnBlankQuery mirrors the interactive form: the secondary search is only
// offered once the primary has terms and results, and the tertiary only once
// both earlier term strings are filled in.
func (r *run) gateOnBlankQuery(primary, secondary, tertiary query.Query) {
	switch {
	case r.working.IsEmpty():
		r.skip(1, secondary, SkipEmptyInput)
	case primary.IsBlank():
		r.skip(1, secondary, SkipBlankQuery)
	default:
		r.exec(1, secondary, "No records found after secondary search.")
	}

	sec := r.out.Stages[1]
	switch {
	case sec.Status == Skipped:
		r.skip(2, tertiary, sec.SkipReason)
	case secondary.IsBlank():
		r.skip(2, tertiary, SkipBlankQuery)
	case r.working.IsEmpty():
		r.skip(2, tertiary, SkipEmptyInput)
	default:
		r.exec(2, tertiary, "No records found after tertiary search.")
	}
}

func (r *run) exec(i int, q query.Query, emptyWarning string) {
	input := r.working.Len()
	out, matched := RunStage(q, r.working)
	r.working = out
	r.finish(i, StageReport{
		Stage:     Stages[i],
		Status:    Ran,
		Query:     q,
		InputRows: input,
		Matched:   matched,
	})
	if out.IsEmpty() {
		r.out.Warnings = append(r.out.Warnings, emptyWarning)
	}
}

func (r *run) skip(i int, q query.Query, reason SkipReason) {
	r.finish(i, StageReport{
		Stage:      Stages[i],
		Status:     Skipped,
		SkipReason: reason,
		Query:      q,
		InputRows:  r.working.Len(),
	})
}

func (r *run) finish(i int, rep StageReport) {
	r.out.Stages[i] = rep
	if r.pipeline.observer != nil {
		r.pipeline.observer.ObserveStage(rep)
	}
}

// RunPipeline runs the three stages over filtered under policy p.
func RunPipeline(p policy.Policy, filtered claim.Set, primary, secondary, tertiary query.Query) Outcome {
	return NewPipeline(p).Run(filtered, primary, secondary, tertiary)
}
