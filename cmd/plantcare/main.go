// plantcare identifies plants and checks their health from the command line,
// and manages the garden kept by the backend.
//
// Usage:
//
//	plantcare scan <image>... [--parallel N] [--save]
//	plantcare health <image> --name <garden entry> [--save]
//	plantcare garden add <name>
//	plantcare garden list
//	plantcare garden care <name>
//	plantcare history [--filter all|healthy|unhealthy] [--limit N]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/franckalain/plantcare/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config   string
	logLevel string
	output   string
}

var rootCmd = &cobra.Command{
	Use:   "plantcare",
	Short: "Identify plants and check their health",
	Long:  "plantcare uploads plant photos to the media host, asks the backend to\nidentify them or diagnose their health, and manages your garden.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.config, "config", config.GetConfigPath(), "path to configuration file")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	f.StringVarP(&rootFlags.output, "output", "o", "table", "output format (table, markdown)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(gardenCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
