package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/newcast-health/intakeflow/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the conversation as MCP tools so an agent can start a session, call the
legal functions and end it.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP when mcp.addr is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Shutdown(context.Background())

		go func() {
			_ = app.Sessions.Run(ctx)
		}()

		srv := mcp.NewServer(app.Sessions, app.Engine, app.Logger)

		if addr := app.Config.MCP.Addr; addr != "" {
			app.Logger.Info("Starting intakeflow MCP server (SSE)", "addr", addr)
			if err := srv.ServeSSE(ctx, addr, app.Config.MCP.BaseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			app.Logger.Info("MCP server stopped gracefully")
			return nil
		}

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		app.Logger.Info("Starting intakeflow MCP server (stdio)")
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
