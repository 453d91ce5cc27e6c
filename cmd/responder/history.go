package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"email-responder/internal/store"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	var (
		limit int
		stats bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently generated replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx := context.Background()
			out := cmd.OutOrStdout()

			if stats {
				st, err := db.Stats(ctx)
				if err != nil {
					return err
				}
				return writeStats(out, st)
			}

			records, err := db.ListHistory(ctx, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No history yet.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tSOURCE\tCONFIDENCE\tMESSAGE")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
					r.CreatedAt.Format("2006-01-02T15:04:05"), r.ResponseType, r.Source, r.Confidence, r.OriginalEmail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of records to show")
	cmd.Flags().BoolVar(&stats, "stats", false, "show counts by response type instead")
	return cmd
}

// writeStats prints the totals with breakdown rows sorted by name.
func writeStats(out io.Writer, st store.Stats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TOTAL\t%d\n", st.TotalResponses)
	fmt.Fprintln(w, "TYPE\tCOUNT")
	for _, typ := range sortedKeys(st.ByType) {
		fmt.Fprintf(w, "%s\t%d\n", typ, st.ByType[typ])
	}
	fmt.Fprintln(w, "SOURCE\tCOUNT")
	for _, src := range sortedKeys(st.BySource) {
		fmt.Fprintf(w, "%s\t%d\n", src, st.BySource[src])
	}
	return w.Flush()
}

// sortedKeys returns the map's keys in ascending order.
func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
