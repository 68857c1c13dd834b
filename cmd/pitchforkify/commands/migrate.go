package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies the database schema.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Migrate(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}
