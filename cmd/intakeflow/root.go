package main

import (
	"context"
	"fmt"
	"os"

	"github.com/newcast-health/intakeflow/internal/cli"
	"github.com/newcast-health/intakeflow/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "intakeflow",
	Short: "intakeflow runs the patient intake and appointment booking conversation",
	Long: `intakeflow drives a patient intake and appointment booking conversation as a
state machine. A language model (or a person at the terminal) calls the functions
legal at the current node; each call validates its arguments, runs its handler
and moves the conversation to the next node.

Configuration is read from --config, a .env file and INTAKE_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("flow", "", "Path to a YAML or JSON flow (overrides flow.path)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every lifecycle signal at debug level")
}

// loadConfig reads the configuration named by the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flow, _ := cmd.Flags().GetString("flow"); flow != "" {
		cfg.Flow.Path = flow
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newApp loads the configuration and wires the engine.
func newApp(ctx context.Context, cmd *cobra.Command) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	var opts []cli.AppOption
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		opts = append(opts, cli.WithDebugHooks())
	}
	return cli.NewApp(ctx, cfg, opts...)
}
