package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavemetrics/asset-cli/internal/importer"
)

var importKind string

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import road assets or moisture readings from CSV files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind := importer.Kind(importKind)
		if kind != importer.KindAssets && kind != importer.KindReadings {
			return eris.Errorf("unknown --kind %q (want assets or readings)", importKind)
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		im := importer.New(s, cfg.Import.Concurrency)
		summary, err := im.ImportFiles(ctx, kind, args, tenant())
		if err != nil {
			return eris.Wrap(err, "import")
		}

		for _, re := range summary.Rejected {
			zap.L().Warn("rejected row", zap.Int("line", re.Line), zap.Error(re.Err))
		}
		zap.L().Info("import complete",
			zap.Int("files", summary.Files),
			zap.Int("inserted", summary.Inserted),
			zap.Int("rejected", len(summary.Rejected)),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importKind, "kind", "assets", "what the files contain: assets or readings")
	rootCmd.AddCommand(importCmd)
}
