package search

import (
	"database/sql"
	"slices"
	"testing"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/policy"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/query"
)

func notes(texts ...string) claim.Set {
	recs := make([]claim.Record, 0, len(texts))
	for i, t := range texts {
		recs = append(recs, claim.New(claim.Fields{
			ClaimNumber: string(rune('A' + i)),
			Note:        sql.NullString{String: t, Valid: true},
		}))
	}
	return claim.NewBase(recs)
}

func q(t *testing.T, raw string, m mode.Mode, threshold int) query.Query {
	t.Helper()
	out, err := query.New(raw, m, threshold)
	if err != nil {
		t.Fatalf("query.New(%q): %v", raw, err)
	}
	return out
}

type recordingObserver struct {
	reports []StageReport
}

func (r *recordingObserver) ObserveStage(rep StageReport) { r.reports = append(r.reports, rep) }

func TestRunStage_WholeWord(t *testing.T) {
	base := notes("the pain", "painful", "hospital", "pain management")

	out, matched := RunStage(q(t, "pain", mode.WholeWord, 1), base)
	if matched != 2 {
		t.Errorf("matched = %d, want 2", matched)
	}
	if got := out.SourceIndexes(); !slices.Equal(got, []int{0, 3}) {
		t.Errorf("indexes = %v, want [0 3]", got)
	}
}

func TestRunStage_Substring(t *testing.T) {
	base := notes("the pain", "painful", "hospital", "pain management")

	out, _ := RunStage(q(t, "pain", mode.Substring, 1), base)
	if got := out.SourceIndexes(); !slices.Equal(got, []int{0, 1, 3}) {
		t.Errorf("indexes = %v, want [0 1 3]", got)
	}
}

func TestRunStage_ThresholdRequiresDistinctTerms(t *testing.T) {
	base := notes("back pain and neck", "back back back", "neck pain")

	out, matched := RunStage(q(t, "back, neck, pain", mode.WholeWord, 2), base)
	if matched != 2 {
		t.Errorf("matched = %d, want 2", matched)
	}
	if got := out.SourceIndexes(); !slices.Equal(got, []int{0, 2}) {
		t.Errorf("indexes = %v, want [0 2]", got)
	}
}

func TestRunStage_BlankQueryKeepsAll(t *testing.T) {
	base := notes("a", "b", "c")

	out, matched := RunStage(query.Blank(mode.WholeWord), base)
	if matched != 3 || out.Len() != 3 {
		t.Errorf("matched=%d len=%d, want 3/3", matched, out.Len())
	}
}

func TestRunStage_StableUnderRepeat(t *testing.T) {
	base := notes("knee surgery", "knee", "surgery", "elbow")
	stage := q(t, "knee, surgery", mode.WholeWord, 1)

	once, _ := RunStage(stage, base)
	twice, _ := RunStage(stage, once)
	if !slices.Equal(once.SourceIndexes(), twice.SourceIndexes()) {
		t.Errorf("second pass changed result: %v -> %v", once.SourceIndexes(), twice.SourceIndexes())
	}
}

func TestPipeline_ChainedStagesNarrow(t *testing.T) {
	base := notes(
		"back pain after fall",
		"back pain surgery scheduled",
		"neck pain",
		"back injury surgery",
	)

	for _, p := range []policy.Policy{policy.SkipOnBlankQuery, policy.SkipOnEmptyInput} {
		t.Run(string(p), func(t *testing.T) {
			out := NewPipeline(p).Run(base,
				q(t, "back", mode.WholeWord, 1),
				q(t, "pain", mode.WholeWord, 1),
				q(t, "surgery", mode.WholeWord, 1),
			)
			if got := out.Result.SourceIndexes(); !slices.Equal(got, []int{1}) {
				t.Errorf("indexes = %v, want [1]", got)
			}
			wantMatched := []int{3, 2, 1}
			wantInput := []int{4, 3, 2}
			for i, rep := range out.Stages {
				if rep.Status != Ran {
					t.Errorf("%s status = %s, want ran", rep.Stage, rep.Status)
				}
				if rep.Matched != wantMatched[i] || rep.InputRows != wantInput[i] {
					t.Errorf("%s input=%d matched=%d, want %d/%d",
						rep.Stage, rep.InputRows, rep.Matched, wantInput[i], wantMatched[i])
				}
			}
			if out.LastRan() != Tertiary {
				t.Errorf("LastRan() = %s", out.LastRan())
			}
			if len(out.Warnings) != 0 {
				t.Errorf("warnings = %q", out.Warnings)
			}
		})
	}
}

func TestPipeline_SkipOnBlankQuery(t *testing.T) {
	base := notes("back pain", "neck pain", "elbow")

	tests := []struct {
		name                string
		primary, sec, tert  string
		wantSecondary       SkipReason
		wantTertiary        SkipReason
		wantSecondaryRan    bool
		wantTertiaryRan     bool
		wantIndexes         []int
		wantWarnings        int
	}{
		{
			name: "blank primary skips later stages", primary: "", sec: "back", tert: "pain",
			wantSecondary: SkipBlankQuery, wantTertiary: SkipBlankQuery,
			wantIndexes: []int{0, 1, 2},
		},
		{
			name: "blank secondary skips tertiary", primary: "pain", sec: "", tert: "neck",
			wantSecondaryRan: true, wantTertiary: SkipBlankQuery,
			wantIndexes: []int{0, 1},
		},
		{
			name: "empty primary result skips later stages", primary: "knee", sec: "back", tert: "pain",
			wantSecondary: SkipEmptyInput, wantTertiary: SkipEmptyInput,
			wantIndexes: []int{}, wantWarnings: 1,
		},
		{
			name: "empty secondary result skips tertiary", primary: "pain", sec: "elbow", tert: "back",
			wantSecondaryRan: true, wantTertiary: SkipEmptyInput,
			wantIndexes: []int{}, wantWarnings: 1,
		},
		{
			name: "blank tertiary runs and keeps all", primary: "pain", sec: "back", tert: "",
			wantSecondaryRan: true, wantTertiaryRan: true,
			wantIndexes: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewPipeline(policy.SkipOnBlankQuery).Run(base,
				q(t, tt.primary, mode.WholeWord, 1),
				q(t, tt.sec, mode.WholeWord, 1),
				q(t, tt.tert, mode.WholeWord, 1),
			)
			checkStage(t, out.Report(Secondary), tt.wantSecondaryRan, tt.wantSecondary)
			checkStage(t, out.Report(Tertiary), tt.wantTertiaryRan, tt.wantTertiary)
			if got := out.Result.SourceIndexes(); !slices.Equal(got, tt.wantIndexes) {
				t.Errorf("indexes = %v, want %v", got, tt.wantIndexes)
			}
			if len(out.Warnings) != tt.wantWarnings {
				t.Errorf("warnings = %q, want %d", out.Warnings, tt.wantWarnings)
			}
		})
	}
}

func TestPipeline_SkipOnEmptyInput(t *testing.T) {
	base := notes("back pain", "neck pain", "elbow")

	t.Run("blank stages still run", func(t *testing.T) {
		out := NewPipeline(policy.SkipOnEmptyInput).Run(base,
			query.Blank(mode.WholeWord),
			q(t, "pain", mode.WholeWord, 1),
			query.Blank(mode.WholeWord),
		)
		checkStage(t, out.Report(Secondary), true, SkipNone)
		checkStage(t, out.Report(Tertiary), true, SkipNone)
		if got := out.Result.SourceIndexes(); !slices.Equal(got, []int{0, 1}) {
			t.Errorf("indexes = %v", got)
		}
	})

	t.Run("empty primary result skips the rest", func(t *testing.T) {
		out := NewPipeline(policy.SkipOnEmptyInput).Run(base,
			q(t, "knee", mode.WholeWord, 1),
			q(t, "pain", mode.WholeWord, 1),
			q(t, "back", mode.WholeWord, 1),
		)
		checkStage(t, out.Report(Secondary), false, SkipEmptyInput)
		checkStage(t, out.Report(Tertiary), false, SkipEmptyInput)
		if want := []string{"No records found after primary search."}; !slices.Equal(out.Warnings, want) {
			t.Errorf("warnings = %q", out.Warnings)
		}
		if out.LastRan() != Primary {
			t.Errorf("LastRan() = %s", out.LastRan())
		}
	})

	t.Run("empty secondary result skips tertiary", func(t *testing.T) {
		out := NewPipeline(policy.SkipOnEmptyInput).Run(base,
			q(t, "pain", mode.WholeWord, 1),
			q(t, "elbow", mode.WholeWord, 1),
			q(t, "back", mode.WholeWord, 1),
		)
		checkStage(t, out.Report(Secondary), true, SkipNone)
		checkStage(t, out.Report(Tertiary), false, SkipEmptyInput)
		if want := []string{"No records found after secondary search."}; !slices.Equal(out.Warnings, want) {
			t.Errorf("warnings = %q", out.Warnings)
		}
	})
}

func TestPipeline_EmptyFilteredSet(t *testing.T) {
	out := NewPipeline(policy.SkipOnBlankQuery).Run(notes(),
		q(t, "pain", mode.WholeWord, 1),
		q(t, "back", mode.WholeWord, 1),
		q(t, "neck", mode.WholeWord, 1),
	)
	if out.Report(Primary).Status != Ran {
		t.Errorf("primary status = %s, want ran", out.Report(Primary).Status)
	}
	checkStage(t, out.Report(Secondary), false, SkipEmptyInput)
	checkStage(t, out.Report(Tertiary), false, SkipEmptyInput)
	if !out.Result.IsEmpty() {
		t.Errorf("result len = %d", out.Result.Len())
	}
}

func TestPipeline_InvalidPolicyFallsBack(t *testing.T) {
	if got := NewPipeline("bogus").Policy(); got != policy.Default {
		t.Errorf("Policy() = %s, want %s", got, policy.Default)
	}
}

func TestPipeline_ObserverSeesEveryStage(t *testing.T) {
	obs := &recordingObserver{}
	NewPipeline(policy.SkipOnBlankQuery).WithObserver(obs).Run(notes("back pain"),
		q(t, "", mode.WholeWord, 1),
		q(t, "back", mode.WholeWord, 1),
		q(t, "", mode.WholeWord, 1),
	)
	if len(obs.reports) != 3 {
		t.Fatalf("observed %d reports, want 3", len(obs.reports))
	}
	for i, st := range Stages {
		if obs.reports[i].Stage != st {
			t.Errorf("report %d stage = %s, want %s", i, obs.reports[i].Stage, st)
		}
	}
}

func checkStage(t *testing.T, rep StageReport, wantRan bool, wantReason SkipReason) {
	t.Helper()
	if wantRan {
		if rep.Status != Ran {
			t.Errorf("%s status = %s (%s), want ran", rep.Stage, rep.Status, rep.SkipReason)
		}
		return
	}
	if rep.Status != Skipped || rep.SkipReason != wantReason {
		t.Errorf("%s = %s/%s, want skipped/%s", rep.Stage, rep.Status, rep.SkipReason, wantReason)
	}
	if rep.Matched != 0 {
		t.Errorf("%s matched = %d for skipped stage", rep.Stage, rep.Matched)
	}
}

func TestRunPipeline_EndToEnd(t *testing.T) {
	base := notes("the pain", "painful", "hospital", "pain management")

	out := RunPipeline(policy.SkipOnBlankQuery, base,
		q(t, "pain", mode.WholeWord, 1), query.Blank(mode.WholeWord), query.Blank(mode.WholeWord))
	if got := out.Result.SourceIndexes(); !slices.Equal(got, []int{0, 3}) {
		t.Errorf("indexes = %v, want [0 3]", got)
	}
}
