package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/foodshop/pkg/repository"
	"github.com/example/foodshop/pkg/shop"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var errNotConfirmed = errors.New("refusing to truncate without --yes")

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := repository.NewStore(&cfg.Database, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("Schema migrated", zap.String("driver", store.Driver()))
			return nil
		},
	}
}

func newTruncateCmd(load loader) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "truncate",
		Short: "Delete every row and drop cached pages and users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNotConfirmed
			}
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := repository.NewStore(&cfg.Database, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Truncate(cmd.Context()); err != nil {
				return err
			}

			cache := repository.NewRedisRepository(&cfg.Redis, &cfg.Cache)
			defer cache.Close()
			if err := cache.InvalidatePaths(cmd.Context(), shop.CachedPaths()...); err != nil {
				logger.Warn("Failed to drop cached pages", zap.Error(err))
			}
			if err := cache.ForgetUsers(cmd.Context()); err != nil {
				logger.Warn("Failed to drop cached users", zap.Error(err))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "All tables truncated.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all data")
	return cmd
}

// newHashKeyCmd prints the bcrypt hash to put in admin.api_key_hash.
func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <api-key>",
		Short: "Hash an admin API key for the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return errors.New("api key must not be empty")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}
