package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
	"github.com/kailas-cloud/claimsearch/internal/domain/selection"
	logpkg "github.com/kailas-cloud/claimsearch/internal/logger"
	searchuc "github.com/kailas-cloud/claimsearch/internal/usecase/search"
)

func newOptionsCmd() *cobra.Command {
	var (
		source  sourceFlags
		parents []string
	)

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List filter values, year bounds and default selections of a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logpkg.FromContext(cmd.Context())
			file, err := source.open(logger)
			if err != nil {
				return err
			}

			var sel []string
			if cmd.Flags().Changed("agency-parent") {
				sel = parents
				if sel == nil {
					sel = []string{}
				}
			}
			opts, err := searchuc.New(file, logger).Options(cmd.Context(), sel)
			if err != nil {
				return fmt.Errorf("options: %w", err)
			}
			printOptions(cmd.OutOrStdout(), &opts)
			return nil
		},
	}

	source.register(cmd)
	cmd.Flags().StringSliceVar(&parents, "agency-parent", nil, "Restrict agency names to these parents")
	return cmd
}

func printOptions(w io.Writer, o *selection.Options) {
	for _, f := range claim.CategoricalFields {
		values := o.Values[f]
		if f == claim.AgencyName {
			values = o.AgencyNames
		}
		fmt.Fprintf(w, "%s: %s\n", f, strings.Join(values, " | "))
	}
	if o.HasYears {
		fmt.Fprintf(w, "ASSERTED_YEAR: %d-%d\n", o.YearMin, o.YearMax)
	} else {
		fmt.Fprintln(w, "ASSERTED_YEAR: none")
	}

	d := o.Defaults
	fmt.Fprintln(w, "defaults:")
	fmt.Fprintf(w, "  %s: %s\n", claim.ClaimType, strings.Join(d.ClaimTypes, " | "))
	fmt.Fprintf(w, "  %s: %s\n", claim.LossType, strings.Join(d.LossTypes, " | "))
	fmt.Fprintf(w, "  %s: %s\n", claim.AgencyParent, strings.Join(d.AgencyParents, " | "))
	fmt.Fprintf(w, "  %s: %s\n", claim.AgencyName, strings.Join(d.AgencyNames, " | "))
}
