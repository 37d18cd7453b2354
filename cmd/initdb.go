package cmd

import (
	"fmt"

	"face-attend-system/internal/global/database"

	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create tables and the default administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		database.Init()
		created, err := database.SeedAdmin(database.DB, adminEmail, adminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "Admin user created: %s\n", adminEmail)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Admin user already exists: %s\n", adminEmail)
		}
		return nil
	},
}

func init() {
	initDBCmd.Flags().StringVar(&adminEmail, "email", database.DefaultAdminEmail, "administrator email")
	initDBCmd.Flags().StringVar(&adminPassword, "password", database.DefaultAdminPassword, "administrator password")
	rootCmd.AddCommand(initDBCmd)
}
