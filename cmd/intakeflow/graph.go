package main

import (
	"context"
	"fmt"

	"github.com/newcast-health/intakeflow"
	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/internal/presentation/graph"
	"github.com/newcast-health/intakeflow/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [flow]",
	Short: "Print the flow as a Mermaid flowchart",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []intakeflow.Option{intakeflow.WithLogger(logging.NewNop())}
		path, _ := cmd.Flags().GetString("flow")
		if len(args) > 0 {
			path = args[0]
		}
		if path != "" {
			opts = append(opts, intakeflow.WithLoader(file.NewLoader(path)))
		}

		eng, err := intakeflow.New(context.Background(), opts...)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(eng.Flow(), eng.Edges(), nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
