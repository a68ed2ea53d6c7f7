package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavemetrics/asset-cli/internal/config"
	"github.com/pavemetrics/asset-cli/internal/store"
)

var cfg *config.Config

var tenantFlag string

var rootCmd = &cobra.Command{
	Use:   "asset-cli",
	Short: "Road asset inventory and maintenance budget optimizer",
	Long:  "Manages a multi-tenant road asset inventory, projects pavement condition under budget scenarios, and serves the results over HTTP.",
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

// tenant resolves the effective tenant for a command run.
func tenant() string {
	if tenantFlag != "" {
		return tenantFlag
	}
	return cfg.Tenant
}

// openStore opens the configured store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	s, err := config.OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "tenant ID (default from config)")
}
