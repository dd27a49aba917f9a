package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mashub/api/internal/app"
	"mashub/api/internal/config"
	"mashub/api/internal/infra/database"
	"mashub/api/internal/logger"
	"mashub/api/internal/service"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("env"); path != "" {
		if err := os.Setenv("ENVPATH", path); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

// withServices opens the db and the configured backends the same way the
// api does, then runs fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, services *service.Services) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Init(cfg)
	if err != nil {
		return err
	}

	a := &app.App{Config: cfg, Db: db, Log: logger.New(cmd.ErrOrStderr(), cfg.ProdEnv)}
	defer a.Close()

	deps, err := a.Deps(ctx)
	if err != nil {
		return err
	}

	return fn(ctx, service.HewServices(db, a.Log, cfg, deps))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	return withServices(cmd, func(ctx context.Context, services *service.Services) error {
		report, err := services.Retries.ProcessPendingRetries(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	})
}

func runStats(cmd *cobra.Command, _ []string) error {
	return withServices(cmd, func(ctx context.Context, services *service.Services) error {
		stats, err := services.Retries.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	})
}

func runReplay(cmd *cobra.Command, args []string) error {
	return withServices(cmd, func(ctx context.Context, services *service.Services) error {
		if err := services.Retries.Replay(ctx, args[0]); err != nil {
			return fmt.Errorf("replay %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s queued\n", args[0])
		return nil
	})
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Init migrates
	db, err := database.Init(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", cfg.DB.Driver)
	return nil
}
