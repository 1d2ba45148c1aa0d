package cli

import (
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gear6io/terrapipe/pipeline/config"
	"github.com/gear6io/terrapipe/pipeline/engine"
	"github.com/gear6io/terrapipe/pipeline/schema"
)

var probeCmd = &cobra.Command{
	Use:   "probe <uri>",
	Short: "Inspect a remote dataset's schema without transferring row data",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := config.SetupLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Open(ctx, cfg.Engine, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if cfg.S3 != (engine.S3Credentials{}) {
		if err := eng.ConfigureS3(ctx, cfg.S3); err != nil {
			return err
		}
	}

	dataset := &schema.RemoteDataset{URI: args[0], TypeKey: "probe"}
	desc, err := schema.NewProber(eng, logger).Probe(ctx, dataset)
	if err != nil {
		return err
	}

	rows := pterm.TableData{{"Column", "Type"}}
	for _, col := range desc.Columns() {
		rows = append(rows, []string{col.Name, col.Type})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}

	meta := schema.ReadGeoMetadata(ctx, eng, dataset)
	if meta.PrimaryColumn != "" {
		pterm.Info.Printfln("Geometry column: %s (%s)", meta.PrimaryColumn, meta.Encoding)
	}
	if meta.BBoxColumn != "" {
		pterm.Info.Printfln("BBox column: %s", meta.BBoxColumn)
	}
	return nil
}
