package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franckalain/plantcare/internal/format"
	"github.com/franckalain/plantcare/internal/models"
)

var historyFlags struct {
	filter string
	limit  int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scans",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.filter, "filter", "all", "which scans to show (all, healthy, unhealthy)")
	f.IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum number of scans")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	filter, ok := models.ParseScanFilter(historyFlags.filter)
	if !ok {
		return fmt.Errorf("unknown filter %q (want all, healthy or unhealthy)", historyFlags.filter)
	}
	if historyFlags.limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	db, err := a.openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	scans, err := db.RecentScans(cmd.Context(), historyFlags.limit, filter)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(scans) == 0 {
		fmt.Fprintln(out, "No scans yet.")
		return nil
	}
	fmt.Fprintln(out, format.History(a.mode, scans))
	return nil
}
