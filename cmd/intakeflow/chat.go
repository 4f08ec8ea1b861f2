package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/newcast-health/intakeflow"
	"github.com/newcast-health/intakeflow/internal/cli"
	"github.com/newcast-health/intakeflow/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Play a conversation by hand",
	Long: `Starts a session at the terminal. Each line calls a function legal at the current
node, e.g.

  collect_patient_info {"name": "Jane Doe", "birthday": "1990-01-01"}

Type :help for the other commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Shutdown(context.Background())

		renderer, err := tui.NewRenderer(os.Stdout)
		if err != nil {
			return err
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(os.Stdout, intakeflow.Version)
		}

		sessionID, _ := cmd.Flags().GetString("session")
		chat := &cli.Chat{
			Sessions: app.Sessions,
			Renderer: renderer,
			In:       os.Stdin,
			Out:      os.Stdout,
		}
		return chat.Run(ctx, sessionID)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Session ID (generated when empty)")
	chatCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
