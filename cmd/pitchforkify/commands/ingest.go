package commands

import (
	"github.com/spf13/cobra"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
)

var (
	ingestPage   *int
	ingestDryRun *bool
)

func init() {
	ingestPage = ingestCmd.Flags().Int("page", 1, "The listing page to ingest.")
	ingestDryRun = ingestCmd.Flags().Bool("dry-run", false, "Keep reviews in memory instead of the database.")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [--page N] [--dry-run]",
	Short: "Ingests a single listing page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context(), *ingestDryRun)
		if err != nil {
			return err
		}
		defer application.Close()

		report, err := application.Ingest(cmd.Context(), *ingestPage)
		if err != nil {
			return err
		}
		renderReports(cmd.OutOrStdout(), []domain.PageReport{report})
		return nil
	},
}
