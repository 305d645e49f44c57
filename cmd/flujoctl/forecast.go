package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"flujo/internal/core"
	"flujo/internal/flow"
	"flujo/internal/forecast"
)

func forecastCmd() *cobra.Command {
	var (
		year     int
		vatMonth int
		amount   string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast the remaining months of a year",
		Long: `Fill the months of the year after the last month with actual
transactions. Recurring categories follow their dampened average. The
year-end bonus (December) and the profit share (May) are each posted as an
expense of half the payroll average. VAT is derived from the forecast lines.
With --vat-month the VAT breakdown of that forecast month is shown instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format, formatTable, formatJSON, formatCSV); err != nil {
				return err
			}
			var field core.AmountField
			if amount != "" {
				f, err := core.ParseAmountField(amount)
				if err != nil {
					return fmt.Errorf("invalid --amount %q: must be home or foreign", amount)
				}
				field = f
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if vatMonth != 0 {
				b, err := s.flows.VAT(cmd.Context(), year, vatMonth, field)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), b)
				}
				return writeVAT(cmd, b)
			}

			res, err := s.flows.Forecast(cmd.Context(), year, field)
			if err != nil {
				return err
			}
			if len(res.Forecasted) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Nothing to forecast for %d\n", year)
			}
			t := flow.Export(res.View())
			return renderTable(cmd.OutOrStdout(), format, t, res)
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year to forecast")
	cmd.Flags().IntVar(&vatMonth, "vat-month", 0, "show the VAT breakdown of this month (1-12)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount field (home, foreign)")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json, csv)")
	return cmd
}

func writeVAT(cmd *cobra.Command, b forecast.VATBreakdown) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "VAT %s\n\n", b.Month)
	for _, l := range b.Incomes {
		fmt.Fprintf(tw, "  %s\t%s\n", l.Category, core.FormatAmount(l.Amount))
	}
	fmt.Fprintf(tw, "Taxable income\t%s\n", core.FormatAmount(b.TaxableIncome))
	for _, l := range b.Expenses {
		fmt.Fprintf(tw, "  %s\t%s\n", l.Category, core.FormatAmount(l.Amount))
	}
	fmt.Fprintf(tw, "Taxable expense\t%s\n", core.FormatAmount(b.TaxableExpense))
	fmt.Fprintf(tw, "VAT collected\t%s\n", core.FormatAmount(b.Collected))
	fmt.Fprintf(tw, "VAT creditable\t%s\n", core.FormatAmount(b.Creditable))
	fmt.Fprintf(tw, "Net VAT payable\t%s\n", core.FormatAmount(b.NetPayable))
	return tw.Flush()
}
