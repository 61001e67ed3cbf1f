// Package serve implements the serve command, which runs the HTTP API
// and the scrape scheduler until interrupted.
package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tenderwatch/crawler/internal/app"
	"github.com/tenderwatch/crawler/internal/config"
)

// Command returns the serve command.
func Command() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scrape scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, noScheduler)
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false,
		"serve the API without the periodic scrape schedule")
	return cmd
}

func run(parent context.Context, cfg *config.Config, noScheduler bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			application.Log.Error("Closing application resources failed", "error", closeErr)
		}
	}()

	if !noScheduler {
		if startErr := application.Orchestrator.Start(ctx); startErr != nil {
			return fmt.Errorf("failed to start scheduler: %w", startErr)
		}
		defer application.Orchestrator.Stop()
	}

	return application.Server().Start(ctx)
}
