/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "charisma",
	Short: "Charisma'Move carpooling backend",
	Long: `Charisma'Move carpooling backend: the REST API server, its database
migrations, the notification worker and a terminal client.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(config.LoadConfig().Log)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
