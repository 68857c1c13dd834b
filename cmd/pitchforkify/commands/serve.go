package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the periodic backfill crawl and the ops server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer application.Close()

		return application.Serve(cmd.Context())
	},
}
