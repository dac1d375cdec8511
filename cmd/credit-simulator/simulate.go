package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/internal/config"
	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/format"
	"github.com/iwvelando/credit-simulator/pkg/output"
	"github.com/iwvelando/credit-simulator/pkg/validation"
)

func newSimulateCommand(root *rootOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Evaluate the configured profile against the catalog and print the offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := root.loadConfiguration(config.LoggingConfig{})
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			// CLI override takes precedence over config
			if outputFormat == "" {
				outputFormat = conf.Output.Format
			}
			if outputFormat == "" {
				outputFormat = constants.OutputFormatPretty
			}
			if err := validation.ValidateOutputFormat(outputFormat); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc, err := buildServices(ctx, conf, logger)
			if err != nil {
				return fmt.Errorf("failed to build services: %w", err)
			}
			defer svc.close()

			analysis, err := svc.simulator.Run(ctx, conf.Profile.ToFormData())
			if err != nil {
				logger.Error("simulation failed",
					zap.String("op", "main.simulate"),
					zap.Error(err),
				)
				return err
			}

			return output.Write(cmd.OutOrStdout(), outputFormat, analysis, format.ForTag(conf.Output.Locale))
		},
	}

	cmd.Flags().StringVar(&outputFormat, "output-format", "", "type of output override: pretty, csv")
	return cmd
}
