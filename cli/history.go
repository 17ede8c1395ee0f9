package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaustavray/mathbot/store"
)

// NewHistoryCmd creates the "history" subcommand, which lists recent
// evaluations recorded in a SQLite store.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent evaluations from the SQLite store",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().String("sqlite-path", "", "Path to SQLite database (required)")
	cmd.Flags().Int("limit", 20, "Maximum records to show (0 = all)")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("sqlite-path")
	limit, _ := cmd.Flags().GetInt("limit")
	if path == "" {
		return exitError(exitConfig, "--sqlite-path is required")
	}

	st, err := store.NewSQLiteStore(store.SQLiteStoreConfig{DSN: path})
	if err != nil {
		return exitError(exitRuntime, "opening store: %v", err)
	}
	defer func() {
		_ = st.Close()
	}()

	records, err := st.List(cmd.Context(), limit)
	if err != nil {
		return exitError(exitRuntime, "listing records: %v", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No evaluations recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCHAT\tINPUT\tOUTCOME")
	for _, rec := range records {
		outcome := rec.Result
		if !rec.OK {
			outcome = "invalid"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			rec.Time.UTC().Format(time.RFC3339), rec.ChatID, rec.Input, outcome)
	}
	return w.Flush()
}
