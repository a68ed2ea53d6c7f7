package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pavemetrics/asset-cli/internal/optimizer"
	"github.com/pavemetrics/asset-cli/internal/report"
	"github.com/pavemetrics/asset-cli/internal/store"
)

var (
	scenariosTotal float64
	scenariosXLSX  string
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Compare the standard budget scenarios for a total budget",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if scenariosTotal < 0 {
			return eris.New("--total must be non-negative")
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		assets, err := s.ListAssets(ctx, store.AssetFilter{TenantID: tenant()})
		if err != nil {
			return eris.Wrap(err, "list assets")
		}
		types, err := s.ListMaintenanceTypes(ctx, tenant())
		if err != nil {
			return eris.Wrap(err, "list maintenance types")
		}

		scenarios := optimizer.GenerateBudgetScenarios(scenariosTotal, assets, types)

		p := message.NewPrinter(language.English)
		p.Printf("Total budget: $%.2f across %d assets\n\n", scenariosTotal, len(assets))
		p.Printf("%-18s %-8s %14s %10s %12s\n", "Scenario", "Method", "Projected PCI", "Improved", "Unaddressed")
		for _, sc := range scenarios {
			p.Printf("%-18s %-8s %14.0f %10d %12d\n",
				sc.Name, sc.Method, sc.Result.ProjectedPCI,
				sc.Result.ImprovedAssets, sc.Result.UnaddressedAssets)
		}

		if scenariosXLSX != "" {
			if err := report.WriteScenarioWorkbook(scenariosXLSX, scenariosTotal, scenarios, assets); err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("path", scenariosXLSX))
		}
		return nil
	},
}

func init() {
	scenariosCmd.Flags().Float64Var(&scenariosTotal, "total", 0, "total budget to split across scenarios (required)")
	_ = scenariosCmd.MarkFlagRequired("total")
	scenariosCmd.Flags().StringVar(&scenariosXLSX, "xlsx", "", "also write an XLSX comparison workbook to this path")
	rootCmd.AddCommand(scenariosCmd)
}
