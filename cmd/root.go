package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrenrich/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "addrenrich",
	Short: "Geocode a postal address registry into GeoJSON",
	Long: "Reads a multi-record-type address registry, rebuilds street addresses, " +
		"enriches them with coordinates from a geocoding service under concurrency " +
		"and rate ceilings, and writes a GeoJSON FeatureCollection.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
