package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franckalain/plantcare/internal/format"
	"github.com/franckalain/plantcare/internal/ml"
	"github.com/franckalain/plantcare/internal/models"
)

var healthFlags struct {
	name string
	save bool
}

var healthCmd = &cobra.Command{
	Use:   "health <image>",
	Short: "Check the health of a garden plant from a photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runHealth,
}

func init() {
	f := healthCmd.Flags()
	f.StringVar(&healthFlags.name, "name", "", "garden entry the photo belongs to (required)")
	f.BoolVar(&healthFlags.save, "save", false, "add the plant to the garden")

	_ = healthCmd.MarkFlagRequired("name")
}

func runHealth(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	s, err := a.scanner(ctx, ml.Health)
	if err != nil {
		return err
	}
	defer s.Close()

	outcome := s.scanOne(ctx, args[0], &models.PipelineContext{Name: healthFlags.name})
	outcomes := []format.Outcome{outcome}
	if healthFlags.save {
		a.saveToGarden(ctx, outcomes, healthFlags.name)
	}

	fmt.Fprintln(cmd.OutOrStdout(), format.Outcomes(a.mode, outcomes))
	return outcome.Err
}
