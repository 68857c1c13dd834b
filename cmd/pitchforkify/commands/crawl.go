package commands

import (
	"github.com/spf13/cobra"
)

var (
	crawlFrom   *int
	crawlTo     *int
	crawlDryRun *bool
)

func init() {
	crawlFrom = crawlCmd.Flags().Int("from", 1, "The first listing page to ingest.")
	crawlTo = crawlCmd.Flags().Int("to", 1, "The last listing page to ingest.")
	crawlDryRun = crawlCmd.Flags().Bool("dry-run", false, "Keep reviews in memory instead of the database.")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl --from A --to B [--dry-run]",
	Short: "Ingests a range of listing pages, oldest first when from > to.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context(), *crawlDryRun)
		if err != nil {
			return err
		}
		defer application.Close()

		reports, err := application.Crawl(cmd.Context(), *crawlFrom, *crawlTo)
		if len(reports) > 0 {
			renderReports(cmd.OutOrStdout(), reports)
		}
		return err
	},
}
