package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flujo/internal/backend"
	"flujo/internal/ledger"
)

func importCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "import <file.json|->",
		Short: "Import a batch of records",
		Long: `Import reads a JSON batch with categories, accounts, transactions and
scheduledPayments, the same body POST /api/import accepts. Missing ids are
generated and category names used as guides resolve to their ids. The batch
is validated as a whole and stored only if every record is valid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := readBatch(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			if appConfig.DataBackend == backend.MemoryBackend.String() {
				logger.Warn("Memory backend is not persisted, the import only lasts for this run")
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.imports.Submit(cmd.Context(), source, recs)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stored batch %s\n", res.BatchID)
			return writeStats(cmd.OutOrStdout(), res.Stats)
		},
	}

	cmd.Flags().StringVar(&source, "source", "cli", "source recorded with the batch")
	return cmd
}

// readBatch decodes a batch from path, or from in when path is "-".
func readBatch(in io.Reader, path string) (ledger.Records, error) {
	var recs ledger.Records

	r := in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return recs, err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&recs); err != nil {
		return recs, fmt.Errorf("decode %s: %w", path, err)
	}
	return recs, nil
}

func writeStats(w io.Writer, st ledger.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Categories\t%d\n", st.Categories)
	fmt.Fprintf(tw, "Accounts\t%d\n", st.Accounts)
	fmt.Fprintf(tw, "Transactions\t%d\n", st.Transactions)
	fmt.Fprintf(tw, "Scheduled payments\t%d\n", st.Scheduled)
	return tw.Flush()
}

func batchesCmd() *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List recent import batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format, formatTable, formatJSON); err != nil {
				return err
			}
			if limit < 1 || limit > 500 {
				return fmt.Errorf("invalid --limit %d: must be between 1 and 500", limit)
			}

			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			batches, err := s.imports.Batches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), batches)
			}
			if len(batches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No import batches")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSOURCE\tRECORDS\tCREATED")
			for _, b := range batches {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", b.ID, b.Source, b.Stats.Total(), b.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of batches to show")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format (table, json)")
	return cmd
}
