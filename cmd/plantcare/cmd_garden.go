package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franckalain/plantcare/internal/format"
)

var gardenCmd = &cobra.Command{
	Use:   "garden",
	Short: "Manage the plants in your garden",
}

var gardenAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a plant to the garden",
	Args:  cobra.ExactArgs(1),
	RunE:  runGardenAdd,
}

var gardenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the plants in the garden",
	Args:  cobra.NoArgs,
	RunE:  runGardenList,
}

var gardenCareCmd = &cobra.Command{
	Use:   "care <name>",
	Short: "Show the care guide for a garden plant",
	Args:  cobra.ExactArgs(1),
	RunE:  runGardenCare,
}

func init() {
	gardenCmd.AddCommand(gardenAddCmd)
	gardenCmd.AddCommand(gardenListCmd)
	gardenCmd.AddCommand(gardenCareCmd)
}

func runGardenAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	g, err := a.garden()
	if err != nil {
		return err
	}
	if err := g.Add(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s to the garden\n", args[0])
	return nil
}

func runGardenList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	g, err := a.garden()
	if err != nil {
		return err
	}
	plants, err := g.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(plants) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Your garden is empty.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.Garden(a.mode, plants))
	return nil
}

func runGardenCare(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	g, err := a.garden()
	if err != nil {
		return err
	}
	guide, err := g.Care(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.Care(a.mode, args[0], guide))
	return nil
}
