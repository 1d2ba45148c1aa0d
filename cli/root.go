// Package cli implements the terrapipe command line interface.
package cli

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "terrapipe",
	Short: "Extent-filtered GeoParquet ingest and repartition pipeline",
	Long: `Terrapipe loads an extent-filtered slice of a remote GeoParquet
dataset into an embedded analytical engine, splits it by geometry type
and exports one compressed parquet file per type, ready to register as
map layers in stacking order.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Printfln("%v", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
}
