package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Run: func(_ *cobra.Command, _ []string) {
		initApp(context.Background())
		StopApp()
		logrus.Info("[MIGRATION] Done")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
