package main

import (
	"context"
	"fmt"

	"github.com/newcast-health/intakeflow"
	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/internal/validator"
	"github.com/newcast-health/intakeflow/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow]",
	Short: "Check the flow for consistency",
	Long: `Binds the flow to the registered handlers and reports every problem at once:
missing handlers, undeclared transitions, dangling edges and unreachable nodes.
Without an argument the bundled patient intake flow is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []intakeflow.Option
		path, _ := cmd.Flags().GetString("flow")
		if len(args) > 0 {
			path = args[0]
		}
		if path != "" {
			opts = append(opts, intakeflow.WithLoader(file.NewLoader(path)))
		}
		opts = append(opts, intakeflow.WithLogger(logging.NewNop()))

		eng, err := intakeflow.New(context.Background(), opts...)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		flow := eng.Flow()
		report := validator.ValidateGraph(flow.NodeIDs(), eng.Edges(), flow.InitialNode)
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, id := range report.Unreachable {
			fmt.Fprintf(out, "warning: node '%s' is unreachable from '%s'\n", id, flow.InitialNode)
		}
		fmt.Fprintf(out, "Flow '%s' is valid (%d nodes, %d transitions).\n", flow.Name, len(flow.Nodes), len(eng.Edges()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
