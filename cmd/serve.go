package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pavemetrics/asset-cli/internal/api"
	"github.com/pavemetrics/asset-cli/internal/hotspot"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		var zones []hotspot.Zone
		if cfg.Hotspot.ZonesPath != "" {
			zones, err = hotspot.LoadZones(cfg.Hotspot.ZonesPath)
			if err != nil {
				return eris.Wrap(err, "load zones")
			}
			zap.L().Info("zones loaded",
				zap.String("path", cfg.Hotspot.ZonesPath),
				zap.Int("count", len(zones)),
			)
		}

		server := api.NewServer(s, api.Options{
			DefaultTenant:     cfg.Tenant,
			Zones:             zones,
			RequestsPerSecond: cfg.Server.RequestsPerSecond,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
