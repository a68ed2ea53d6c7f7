package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pavemetrics/asset-cli/internal/optimizer"
	"github.com/pavemetrics/asset-cli/internal/store"
)

var (
	optimizeMethod         string
	optimizePreventive     float64
	optimizeMinor          float64
	optimizeMajor          float64
	optimizeReconstruction float64
	optimizeFiscalYear     int
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Project fleet condition for a budget split",
	Long:  "Runs the impact calculator against the tenant's fleet. Sub-budgets come from flags, or from the active allocation for --fiscal-year when no flag is set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		method, ok := optimizer.ParseMethod(optimizeMethod)
		if !ok {
			return eris.Errorf("unknown --method %q (want impact, cost, or benefit)", optimizeMethod)
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		split := optimizer.BudgetSplit{
			PreventiveMaintenance: optimizePreventive,
			MinorRehabilitation:   optimizeMinor,
			MajorRehabilitation:   optimizeMajor,
			Reconstruction:        optimizeReconstruction,
		}
		if split == (optimizer.BudgetSplit{}) && optimizeFiscalYear > 0 {
			alloc, err := s.ActiveAllocation(ctx, tenant(), optimizeFiscalYear)
			if eris.Is(err, store.ErrNotFound) {
				return eris.Errorf("no active allocation for fiscal year %d", optimizeFiscalYear)
			}
			if err != nil {
				return eris.Wrap(err, "load active allocation")
			}
			split = optimizer.SplitFromAllocation(*alloc)
		}

		assets, err := s.ListAssets(ctx, store.AssetFilter{TenantID: tenant()})
		if err != nil {
			return eris.Wrap(err, "list assets")
		}
		types, err := s.ListMaintenanceTypes(ctx, tenant())
		if err != nil {
			return eris.Wrap(err, "list maintenance types")
		}

		result := optimizer.CalculateBudgetImpact(assets, types, split, method)

		p := message.NewPrinter(language.English)
		p.Printf("Fleet:             %d assets\n", len(assets))
		p.Printf("Budget:            $%.2f\n", split.PreventiveMaintenance+split.MinorRehabilitation+split.MajorRehabilitation+split.Reconstruction)
		p.Printf("Method:            %s\n", method)
		p.Printf("Projected PCI:     %.0f\n", result.ProjectedPCI)
		p.Printf("Improved assets:   %d\n", result.ImprovedAssets)
		p.Printf("Unaddressed:       %d\n", result.UnaddressedAssets)
		return nil
	},
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeMethod, "method", "benefit", "ranking method: impact, cost, or benefit")
	optimizeCmd.Flags().Float64Var(&optimizePreventive, "preventive", 0, "preventive maintenance sub-budget")
	optimizeCmd.Flags().Float64Var(&optimizeMinor, "minor", 0, "minor rehabilitation sub-budget")
	optimizeCmd.Flags().Float64Var(&optimizeMajor, "major", 0, "major rehabilitation sub-budget")
	optimizeCmd.Flags().Float64Var(&optimizeReconstruction, "reconstruction", 0, "reconstruction sub-budget")
	optimizeCmd.Flags().IntVar(&optimizeFiscalYear, "fiscal-year", 0, "use the active allocation for this fiscal year when no sub-budget flags are set")
	rootCmd.AddCommand(optimizeCmd)
}
