// Command crmctl runs maintenance tasks against the CRM database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/config"
	"github.com/wech4801-eng/mirror-frame-forge/internal/csvdetect"
	"github.com/wech4801-eng/mirror-frame-forge/internal/db"
	"github.com/wech4801-eng/mirror-frame-forge/internal/logging"
	"github.com/wech4801-eng/mirror-frame-forge/internal/metrics"
	"github.com/wech4801-eng/mirror-frame-forge/internal/repository"
	"github.com/wech4801-eng/mirror-frame-forge/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "Maintenance commands for the CRM backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newDetectColumnsCmd(), newImportCmd())
	return root
}

// connect loads config, opens the database and returns a logger writing to
// stderr.
func connect(ctx context.Context) (*sql.DB, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, "text")
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	return database, logger, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, logger, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()
			return db.Migrate(cmd.Context(), database, logger)
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Migrate and load the demo data set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, logger, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()
			if err := db.Migrate(cmd.Context(), database, logger); err != nil {
				return err
			}
			return db.Seed(cmd.Context(), database, logger)
		},
	}
}

func newDetectColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect-columns <file.csv>",
		Short: "Show the delimiter, header and column mapping detected for a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := csvdetect.Analyze(raw)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func newImportCmd() *cobra.Command {
	var userFlag, groupFlag string
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import prospects from a CSV file for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			var groupID *uuid.UUID
			if groupFlag != "" {
				id, err := uuid.Parse(groupFlag)
				if err != nil {
					return fmt.Errorf("invalid --group: %w", err)
				}
				groupID = &id
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			database, logger, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			groupRepo := &repository.GroupRepository{DB: database}
			prospects := &service.ProspectService{
				ProspectRepo: &repository.ProspectRepository{DB: database},
				GroupRepo:    groupRepo,
				Routing:      &service.RoutingService{RuleRepo: &repository.RoutingRuleRepository{DB: database}, GroupRepo: groupRepo, Logger: logger},
				Metrics:      metrics.NewNop(),
				Logger:       logger,
			}
			res, err := prospects.Import(cmd.Context(), userID, raw, nil, groupID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d rows, %d skipped\n", res.Imported, res.Total, res.Skipped)
			for _, e := range res.Errors {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userFlag, "user", "", "owner user id (required)")
	cmd.Flags().StringVar(&groupFlag, "group", "", "group id to add imported prospects to")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
