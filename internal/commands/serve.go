package commands

import "github.com/spf13/cobra"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run DB migrations and serve webhooks and calendar endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.RunForever()
		return nil
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "db-migrate",
	Short: "Apply SQL schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return a.RunDBMigrations()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd, dbMigrateCmd)
}
