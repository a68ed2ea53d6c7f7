package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavemetrics/asset-cli/internal/seed"
)

var seedCatalogPath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the maintenance treatment catalog for a tenant",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		catalog := seed.Default()
		if seedCatalogPath != "" {
			c, err := seed.Load(seedCatalogPath)
			if err != nil {
				return err
			}
			catalog = c
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := catalog.Apply(ctx, s, tenant())
		if err != nil {
			return eris.Wrap(err, "seed catalog")
		}

		zap.L().Info("catalog seeded",
			zap.String("tenant", tenant()),
			zap.Int("types", n),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedCatalogPath, "catalog", "", "path to a YAML catalog (default built-in)")
	rootCmd.AddCommand(seedCmd)
}
