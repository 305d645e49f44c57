package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flujo/internal/core"
	"flujo/internal/flow"
)

type queryFlags struct {
	start       string
	end         string
	amount      string
	granularity string
	banks       []string
	upToToday   bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "first date of the view (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "last date of the view (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount field (home, foreign)")
	cmd.Flags().StringVar(&f.granularity, "granularity", "", "bucket size (daily, weekly, monthly)")
	cmd.Flags().StringSliceVar(&f.banks, "bank", nil, "only include these bank accounts (repeatable)")
	cmd.Flags().BoolVar(&f.upToToday, "up-to-today", false, "extend a missing end date to today")
}

// query validates the flags into a flow query for view.
func (f *queryFlags) query(view string) (flow.Query, error) {
	var q flow.Query
	if view != "" {
		kind, err := flow.ParseView(view)
		if err != nil {
			return q, err
		}
		q.View = kind
	}

	for _, d := range []struct{ name, value string }{{"start", f.start}, {"end", f.end}} {
		if d.value == "" {
			continue
		}
		if _, err := core.ParseDate(d.value); err != nil {
			return q, fmt.Errorf("invalid --%s %q: must be YYYY-MM-DD", d.name, d.value)
		}
	}
	if f.start != "" && f.end != "" && f.end < f.start {
		return q, fmt.Errorf("--end %s is before --start %s", f.end, f.start)
	}
	q.Range = flow.DateRange{Start: f.start, End: f.end}

	if f.amount != "" {
		field, err := core.ParseAmountField(f.amount)
		if err != nil {
			return q, fmt.Errorf("invalid --amount %q: must be home or foreign", f.amount)
		}
		q.AmountField = field
	}
	if f.granularity != "" {
		g, err := flow.ParseGranularity(f.granularity)
		if err != nil {
			return q, err
		}
		q.Granularity = g
	}
	q.Banks = f.banks
	q.UpToToday = f.upToToday
	return q, nil
}

func flowCmd() *cobra.Command {
	var (
		flags  queryFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "flow [daily|weekly|monthly|combined|scheduled]",
		Short: "Show a cash flow view",
		Long: `Aggregate the stored records into a cash flow table. The view defaults
to monthly; combined merges transactions with scheduled payments and
scheduled shows only the payments.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: viewNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatJSON, formatCSV); err != nil {
				return err
			}
			view := ""
			if len(args) == 1 {
				view = args[0]
			}
			q, err := flags.query(view)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := s.flows.View(cmd.Context(), q)
			if err != nil {
				return err
			}
			if len(v.Table.Buckets) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No records in range")
				if format != formatJSON {
					return nil
				}
			}
			return renderTable(cmd.OutOrStdout(), format, flow.Export(v), v)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json, csv)")
	return cmd
}

func viewNames() []string {
	out := make([]string, len(flow.Views))
	for i, v := range flow.Views {
		out[i] = string(v)
	}
	return out
}
