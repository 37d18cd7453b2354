package cmd

import (
	"fmt"
	"os"

	"face-attend-system/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attendctl",
	Short: "Face-verified attendance service",
	Long: `attendctl runs the attendance HTTP service, where users register with a
reference photo and check in by submitting a live photo that is compared
against it by an external face recognition service.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Init()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
