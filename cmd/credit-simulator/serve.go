package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/internal/server"
	"github.com/iwvelando/credit-simulator/pkg/comparison"
	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/credit"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var serverConfigPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srvCfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}

			conf, logger, err := root.loadConfiguration(srvCfg.Logging)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := buildServices(ctx, conf, logger)
			if err != nil {
				return fmt.Errorf("failed to build services: %w", err)
			}
			defer svc.close()

			if svc.static != nil {
				conf.WatchCatalog(logger, func(catalog credit.Catalog) {
					svc.static.Replace(catalog)
				})
			}

			sessions := comparison.NewSessions(nil, srvCfg.SessionTTL())
			go sessions.Janitor(ctx, srvCfg.SessionTTL()/2, logger)

			handler := server.NewHandler(server.Options{
				Simulator:      svc.simulator,
				Sessions:       sessions,
				Metrics:        svc.metrics,
				Logger:         logger,
				MaxRequestSize: srvCfg.RequestSizeBytes(),
				SessionCookie:  srvCfg.SessionCookie,
				Version:        version,
				UVAIncomeLimit: conf.Simulation.UVAIncomeLimit,
			})

			httpServer := &http.Server{
				Addr:              srvCfg.Address,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening",
					zap.String("op", "main.serve"),
					zap.String("address", srvCfg.Address),
					zap.Int64("maxRequestSize", srvCfg.RequestSizeBytes()),
				)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down", zap.String("op", "main.serve"))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	return cmd
}
