// Command fuelctl administers the fuel portal's document store: client
// onboarding, demo data and index maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/config"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/mongostore"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/infra/resilience"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "fuelctl",
		Short:         "Administration tool for the fuel portal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file read before the environment")

	rootCmd.AddCommand(clientCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(indexesCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env bundles what every store-backed command needs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *mongostore.Store
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.store.Close(ctx)
	_ = e.logger.Sync()
}

// connect loads configuration and opens the MongoDB store it points at.
func connect(cmd *cobra.Command) (*env, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.StoreDriver != config.StoreMongo {
		return nil, fmt.Errorf("fuelctl needs STORE_DRIVER=%s, got %q", config.StoreMongo, cfg.StoreDriver)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()
	store, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.DBName, resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.DBName, err)
	}
	return &env{cfg: cfg, logger: logger, store: store}, nil
}
