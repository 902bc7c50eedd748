// Package cmd holds the CLI surface for the vitals engine.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "vitals-engine",
	Short:         "Collect and analyze real-user web performance vitals",
	Long:          "vitals-engine ingests layout-shift and interaction beacons, aggregates CLS and INP, classifies performance issues, and archives per-session results.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(mineCmd)
}

// Execute runs the root command and returns its error to main.
func Execute() error {
	return rootCmd.Execute()
}
