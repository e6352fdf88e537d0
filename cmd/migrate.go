package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the store tables",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := mustLoadConfig()
		db, dialect := mustOpenStore(cfg)
		defer func() { _ = db.Close() }()

		logrus.WithField("driver", dialect.Driver).Info("Store schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
