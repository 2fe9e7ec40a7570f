package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "agentsight",
	Short: "Agent telemetry observability server",
	Long: `agentsight ingests structured telemetry events from distributed
agent processes, appends them to an embedded durable log, and streams
them in real time to connected websocket observers.`,
	Version: "0.1.0",
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}
