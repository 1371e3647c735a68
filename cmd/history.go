package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/choicecert/certmill/internal/history"
	"github.com/choicecert/certmill/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recent generations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := e.History.Recent(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "history list")
		}

		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No history.")
			return nil
		}

		formatHistory(os.Stdout, entries)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all history entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.History.Clear(ctx); err != nil {
			return eris.Wrap(err, "history clear")
		}
		fmt.Fprintln(os.Stderr, "History cleared.")
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", history.MaxEntries, "max number of entries to display")
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// formatHistory writes history entries as a table, newest first.
func formatHistory(out io.Writer, entries []model.HistoryEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTATUS\tCREATED\tARTIFACT")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Name,
			e.Status,
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.ArtifactRef,
		)
	}
	_ = w.Flush()
}
