package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/policy"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/query"
	"github.com/kailas-cloud/claimsearch/internal/export"
	logpkg "github.com/kailas-cloud/claimsearch/internal/logger"
	searchuc "github.com/kailas-cloud/claimsearch/internal/usecase/search"
)

const (
	outputTable = "table"
	outputCSV   = "csv"
)

type stageFlags struct {
	terms     string
	threshold int
}

type queryFlags struct {
	source sourceFlags

	claimTypes    []string
	lossTypes     []string
	agencyParents []string
	agencyNames   []string
	noteTypes     []string
	yearFrom      int
	yearTo        int
	missingPasses bool

	primary   stageFlags
	secondary stageFlags
	tertiary  stageFlags
	mode      string
	policy    string

	output  string
	limit   int
	maxNote int
	quiet   bool
}

func newQueryCmd() *cobra.Command {
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter claim notes and run up to three chained term searches",
		Example: `  claimsearchctl query --data claims.csv --claim-type SUIT --year-from 2018 \
    --primary "back pain, mri" --primary-threshold 2 --secondary surgery --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, &qf)
		},
	}

	qf.source.register(cmd)
	f := cmd.Flags()
	f.StringSliceVar(&qf.claimTypes, "claim-type", nil, "Allowed CLAIM_TYPE values (repeatable)")
	f.StringSliceVar(&qf.lossTypes, "loss-type", nil, "Allowed LOSS_TYPE values (repeatable)")
	f.StringSliceVar(&qf.agencyParents, "agency-parent", nil, "Allowed AGENCY_PARENT values (repeatable)")
	f.StringSliceVar(&qf.agencyNames, "agency-name", nil, "Allowed AGENCY_NAME values (repeatable)")
	f.StringSliceVar(&qf.noteTypes, "note-type", nil, "Allowed NOTE_TYPE values (repeatable)")
	f.IntVar(&qf.yearFrom, "year-from", 0, "First asserted year (inclusive)")
	f.IntVar(&qf.yearTo, "year-to", 0, "Last asserted year (inclusive)")
	f.BoolVar(&qf.missingPasses, "missing-passes", false, "Rows with a missing filtered value pass the filter")

	f.StringVar(&qf.primary.terms, "primary", "", "Primary search terms, comma-separated")
	f.IntVar(&qf.primary.threshold, "primary-threshold", 1, "Minimum distinct primary terms per note")
	f.StringVar(&qf.secondary.terms, "secondary", "", "Secondary search terms, comma-separated")
	f.IntVar(&qf.secondary.threshold, "secondary-threshold", 1, "Minimum distinct secondary terms per note")
	f.StringVar(&qf.tertiary.terms, "tertiary", "", "Tertiary search terms, comma-separated")
	f.IntVar(&qf.tertiary.threshold, "tertiary-threshold", 1, "Minimum distinct tertiary terms per note")
	f.StringVar(&qf.mode, "mode", string(mode.Default), "Match mode: whole_word or substring")
	f.StringVar(&qf.policy, "policy", string(policy.Default), "Stage policy: skip_on_blank_query or skip_on_empty_input")

	f.StringVar(&qf.output, "format", outputTable, "Output format: table or csv")
	f.IntVar(&qf.limit, "limit", 0, "Maximum rows in table output (0 = all)")
	f.IntVar(&qf.maxNote, "max-note", 80, "Truncate notes in table output (0 = never)")
	f.BoolVarP(&qf.quiet, "quiet", "q", false, "Do not print the stage summary")

	return cmd
}

func runQuery(cmd *cobra.Command, qf *queryFlags) error {
	ctx := cmd.Context()
	logger := logpkg.FromContext(ctx)

	if qf.output != outputTable && qf.output != outputCSV {
		return fmt.Errorf("invalid --format %q (want %s or %s)", qf.output, outputTable, outputCSV)
	}
	m, err := mode.Parse(qf.mode)
	if err != nil {
		return fmt.Errorf("parse --mode: %w", err)
	}
	p, err := policy.Parse(qf.policy)
	if err != nil {
		return fmt.Errorf("parse --policy: %w", err)
	}
	expr, err := qf.filter(cmd.Flags())
	if err != nil {
		return err
	}

	req := &searchuc.Request{Filter: expr, Policy: p}
	stages := []struct {
		name string
		in   stageFlags
		dst  *query.Query
	}{
		{"primary", qf.primary, &req.Primary},
		{"secondary", qf.secondary, &req.Secondary},
		{"tertiary", qf.tertiary, &req.Tertiary},
	}
	for _, st := range stages {
		q, err := query.New(st.in.terms, m, st.in.threshold)
		if err != nil {
			return fmt.Errorf("--%s: %w", st.name, err)
		}
		*st.dst = q
	}

	file, err := qf.source.open(logger)
	if err != nil {
		return err
	}
	res, err := searchuc.New(file, logger).Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if !qf.quiet {
		printSummary(cmd.ErrOrStderr(), &res)
	}

	out := cmd.OutOrStdout()
	if qf.output == outputCSV {
		return export.WriteCSV(out, res.Result) //nolint:wrapcheck // already wrapped by export
	}
	return export.WriteTable(out, res.Result.Limit(qf.limit), qf.maxNote) //nolint:wrapcheck // already wrapped by export
}

// filter builds the filter expression. Only flags given on the command line
// constrain their field.
func (qf *queryFlags) filter(flags *pflag.FlagSet) (filter.Expression, error) {
	lists := []struct {
		flag   string
		field  claim.Field
		values []string
	}{
		{"claim-type", claim.ClaimType, qf.claimTypes},
		{"loss-type", claim.LossType, qf.lossTypes},
		{"agency-parent", claim.AgencyParent, qf.agencyParents},
		{"agency-name", claim.AgencyName, qf.agencyNames},
		{"note-type", claim.NoteType, qf.noteTypes},
	}

	var conds []filter.Condition
	for _, l := range lists {
		if !flags.Changed(l.flag) {
			continue
		}
		c, err := filter.NewIn(l.field, l.values)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("--%s: %w", l.flag, err)
		}
		conds = append(conds, c)
	}

	var years *filter.YearRange
	if flags.Changed("year-from") || flags.Changed("year-to") {
		from, to := 1, 9999
		if flags.Changed("year-from") {
			from = qf.yearFrom
		}
		if flags.Changed("year-to") {
			to = qf.yearTo
		}
		yr, err := filter.NewYearRange(from, to)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("year range: %w", err)
		}
		years = &yr
	}

	expr, err := filter.NewExpression(conds, years, qf.missingPasses)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("filter: %w", err)
	}
	return expr, nil
}

func printSummary(w io.Writer, res *searchuc.Result) {
	fmt.Fprintf(w, "filtered rows: %d\n", res.FilteredRows)
	for _, rep := range res.Stages {
		line := fmt.Sprintf("%-9s %-7s", rep.Stage, rep.Status)
		switch rep.Status {
		case searchuc.Ran:
			line += fmt.Sprintf(" terms=[%s] threshold=%d matched=%d/%d",
				strings.Join(rep.Query.Terms(), ", "), rep.Query.Threshold(), rep.Matched, rep.InputRows)
		case searchuc.Skipped:
			line += " (" + string(rep.SkipReason) + ")"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	for _, warn := range res.Warnings {
		fmt.Fprintln(w, "warning: "+warn)
	}
	fmt.Fprintf(w, "records: %d, unique claims: %d\n", res.Result.Len(), res.UniqueClaims)
}
