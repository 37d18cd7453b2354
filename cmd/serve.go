package cmd

import (
	"face-attend-system/cmd/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		server.Init()
		server.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
