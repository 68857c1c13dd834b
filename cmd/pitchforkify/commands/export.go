package commands

import (
	"github.com/spf13/cobra"
)

var exportDir *string

func init() {
	exportDir = exportCmd.Flags().String("dir", "data", "The directory to write genres.json, labels.json and artists.json to.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--dir <path>]",
	Short: "Exports labels, artists and genres as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer application.Close()

		return application.Export(cmd.Context(), *exportDir)
	},
}
