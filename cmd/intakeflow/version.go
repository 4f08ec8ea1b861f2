package main

import (
	"fmt"
	"strings"

	"github.com/newcast-health/intakeflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of intakeflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "intakeflow version %s\n", strings.TrimSpace(intakeflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
