package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hipstersmoothie/pitchforkify/internal/app"
	"github.com/hipstersmoothie/pitchforkify/internal/config"
	"github.com/hipstersmoothie/pitchforkify/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "pitchforkify",
	Short:         "pitchforkify ingests album reviews and links them to the music catalog.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads configuration and wires the application.
func openApp(ctx context.Context, dryRun bool) (*app.Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(ctx, cfg, logger, app.Options{DryRun: dryRun})
}
