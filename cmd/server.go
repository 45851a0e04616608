/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/internal/server"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the Charisma'Move API server",
	Long: `Starts the Charisma'Move API server. Usage:

	charisma server [--port 3001] [--migrate]
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.ServerPort = port
		}
		if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
			cfg.Database.AutoMigrate = true
		}

		srv, err := server.New(cmd.Context(), cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().Int("port", 0, "listen port (overrides SERVER_PORT and PORT)")
	serverCmd.Flags().Bool("migrate", false, "apply database migrations before serving")
}
