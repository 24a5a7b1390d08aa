package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orcaust/orcaust/internal/config"
	"github.com/orcaust/orcaust/internal/database"
	"github.com/orcaust/orcaust/pkg/user"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config/application.yaml"

// NewRootCmd creates the top-level "orcaust" command. Without a subcommand it serves HTTP.
func NewRootCmd() *cobra.Command {
	var configPath string
	serve := newServeCmd(&configPath)
	root := &cobra.Command{
		Use:          "orcaust",
		Short:        "UST budget pricing and approval service",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the YAML configuration")

	root.AddCommand(
		serve,
		newMigrateCmd(&configPath),
		newInitAdminCmd(&configPath),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			application, err := NewApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := database.Migrate(cfg.Database); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
			return nil
		},
	}
}

func newInitAdminCmd(configPath *string) *cobra.Command {
	var tokenTTL time.Duration
	cmd := &cobra.Command{
		Use:   "init-admin",
		Short: "Create or promote the configured administrator",
		Long: "Creates the administrator described by the admin section of the configuration, or " +
			"promotes an existing user with that username. Safe to run more than once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := database.Migrate(cfg.Database); err != nil {
				return err
			}
			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			admin, err := user.EnsureAdmin(cmd.Context(), user.NewUserRepo(db), cfg.Admin)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Administrator %s (id %d) is ready.\n", admin.Username, admin.Id)

			if tokenTTL <= 0 || cfg.Auth.JwtSecret == "" {
				return nil
			}
			token, err := user.NewTokenValidator(cfg.Auth.JwtSecret).Sign(admin, tokenTTL, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Bearer token (valid %s):\n%s\n", tokenTTL, token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 0, "also print a bearer token valid for this long")
	return cmd
}
