package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franckalain/plantcare/internal/format"
	"github.com/franckalain/plantcare/internal/ml"
)

var scanFlags struct {
	parallel int
	save     bool
}

var scanCmd = &cobra.Command{
	Use:   "scan <image>...",
	Short: "Identify the plants in one or more photos",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	f := scanCmd.Flags()
	f.IntVarP(&scanFlags.parallel, "parallel", "p", 4, "maximum number of images processed at once")
	f.BoolVar(&scanFlags.save, "save", false, "add identified plants to the garden")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	s, err := a.scanner(ctx, ml.Identify)
	if err != nil {
		return err
	}
	defer s.Close()

	outcomes := s.scanAll(ctx, args, nil, scanFlags.parallel)
	if scanFlags.save {
		a.saveToGarden(ctx, outcomes, "")
	}

	fmt.Fprintln(cmd.OutOrStdout(), format.Outcomes(a.mode, outcomes))
	if n := failedCount(outcomes); n == len(outcomes) {
		return fmt.Errorf("all %d scans failed", n)
	}
	return nil
}
