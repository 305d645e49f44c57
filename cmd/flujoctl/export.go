package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		flags   queryFlags
		csvPath string
		sheets  bool
		name    string
	)

	cmd := &cobra.Command{
		Use:   "export <view>",
		Short: "Export a flow view to CSV or Google Sheets",
		Long: `Export writes the flattened view (balances, income and expense sections,
totals) to a CSV file or to a tab of the configured spreadsheet. The tab is
named after the sheet name and --name, which defaults to the view.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: viewNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath == "" && !sheets {
				return errors.New("nothing to do: pass --csv or --sheets")
			}
			q, err := flags.query(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if sheets && s.res.Exporter == nil {
				return errors.New("--sheets needs GOOGLE_SPREADSHEET_ID")
			}

			table, err := s.flows.Export(cmd.Context(), q)
			if err != nil {
				return err
			}

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", csvPath, err)
				}
				if err := writeCSV(f, table); err != nil {
					f.Close()
					return fmt.Errorf("write %s: %w", csvPath, err)
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(table.Rows), csvPath)
			}

			if sheets {
				if name == "" {
					name = args[0]
				}
				ref, err := s.flows.Publish(cmd.Context(), s.res.Exporter, name, table)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(table.Rows), ref)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&csvPath, "csv", "", "write the table to this CSV file")
	cmd.Flags().BoolVar(&sheets, "sheets", false, "write the table to the configured spreadsheet")
	cmd.Flags().StringVar(&name, "name", "", "spreadsheet tab suffix (default: the view)")
	return cmd
}
