package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pavemetrics/asset-cli/internal/hotspot"
)

var (
	hotspotsZonesPath string
	hotspotsThreshold float64
)

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Detect moisture hotspots from stored readings and zone polygons",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		zonesPath := hotspotsZonesPath
		if zonesPath == "" {
			zonesPath = cfg.Hotspot.ZonesPath
		}
		if zonesPath == "" {
			return eris.New("--zones is required (or set hotspot.zones_path)")
		}

		zones, err := hotspot.LoadZones(zonesPath)
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		readings, err := s.ListReadings(ctx, tenant(), 0, 0)
		if err != nil {
			return eris.Wrap(err, "list readings")
		}

		threshold := hotspotsThreshold
		if threshold == 0 {
			threshold = cfg.Hotspot.Threshold
		}

		hotspots := hotspot.Detect(zones, readings, threshold)

		p := message.NewPrinter(language.English)
		p.Printf("%d zones, %d readings, threshold %.1f\n\n", len(zones), len(readings), threshold)
		if len(hotspots) == 0 {
			p.Printf("No hotspots detected.\n")
			return nil
		}
		p.Printf("%-24s %9s %6s %8s %8s\n", "Zone", "Readings", "Wet", "Mean", "Max")
		for _, h := range hotspots {
			p.Printf("%-24s %9d %6d %8.1f %8.1f\n",
				h.Zone, h.Readings, h.WetReadings, h.MeanMoisture, h.MaxMoisture)
		}
		return nil
	},
}

func init() {
	hotspotsCmd.Flags().StringVar(&hotspotsZonesPath, "zones", "", "path to a zone shapefile (default from config)")
	hotspotsCmd.Flags().Float64Var(&hotspotsThreshold, "threshold", 0, "moisture threshold (default from config)")
	rootCmd.AddCommand(hotspotsCmd)
}
