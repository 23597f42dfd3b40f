// Command zonematch correlates zone-sensor telemetry with payment
// terminal logs: who was plausibly at the counter when a payment
// happened, and whether a shared payment was a genuine group.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"zonematch/internal/config"
)

var (
	cfgPath string
	verbose bool

	loader *config.Loader
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "zonematch",
	Short: "Correlate zone-sensor and payment-terminal event logs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		loader, err = config.NewLoader(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loader.Config()
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "configs/zones.yaml", "path to zones/thresholds YAML config")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(retroCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(whoCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
