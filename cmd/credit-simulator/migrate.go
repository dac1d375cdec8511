package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/internal/config"
	"github.com/iwvelando/credit-simulator/internal/storage"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	migrator := func() (*storage.Migrator, *zap.Logger, error) {
		conf, logger, err := root.loadConfiguration(config.LoggingConfig{})
		if err != nil {
			return nil, nil, err
		}
		if conf.Store.PostgresDSN == "" {
			return nil, nil, errors.New("store.postgresDSN is not configured")
		}
		return storage.NewMigrator(conf.Store.PostgresDSN, logger), logger, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, logger, err := migrator()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return m.Up()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one step by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				steps = n
			}
			m, logger, err := migrator()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return m.Down(steps)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, logger, err := migrator()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d", v)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	})

	return cmd
}
