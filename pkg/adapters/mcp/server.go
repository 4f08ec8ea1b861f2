// Package mcp exposes intake sessions as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/newcast-health/intakeflow"
	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/internal/presentation/graph"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/registry"
)

// GraphURI is the resource serving the Mermaid flowchart of the flow.
const GraphURI = "intakeflow://flow/graph"

// Sessions is the session manager the tools drive.
type Sessions interface {
	Start(ctx context.Context, sessionID string) (string, *domain.Outcome, error)
	Invoke(ctx context.Context, sessionID, name string, args map[string]any) (*domain.Outcome, error)
	Get(ctx context.Context, sessionID string) (*domain.FlowContext, error)
	Tools(sessionID string) ([]registry.Tool, error)
	End(ctx context.Context, sessionID string) error
}

// FlowInspector exposes the static flow graph.
type FlowInspector interface {
	Flow() *domain.Flow
	Edges() []domain.Edge
}

// Response is the success or failure payload returned by every tool.
type Response struct {
	OK        bool            `json:"ok"`
	SessionID string          `json:"session_id,omitempty"`
	Outcome   *domain.Outcome `json:"outcome,omitempty"`
	Functions []registry.Tool `json:"functions,omitempty"`
	Failure   *domain.Failure `json:"failure,omitempty"`
}

// Server wraps the session manager as an MCP server.
type Server struct {
	sessions  Sessions
	flow      FlowInspector
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions Sessions, flow FlowInspector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		sessions:  sessions,
		flow:      flow,
		logger:    logger,
		mcpServer: server.NewMCPServer("intakeflow-mcp", strings.TrimSpace(intakeflow.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a patient intake session. Returns the first node's messages and its legal functions."),
		mcp.WithString("session_id", mcp.Description("Session id to use (optional, generated when omitted)")),
	), s.handleStartSession)

	s.mcpServer.AddTool(mcp.NewTool("invoke_function",
		mcp.WithDescription("Invoke a function legal at the session's current node. On failure the node is unchanged."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("function", mcp.Required(), mcp.Description("Function name")),
		mcp.WithObject("arguments", mcp.Description("Function arguments matching its parameter schema")),
	), s.handleInvoke)

	s.mcpServer.AddTool(mcp.NewTool("list_functions",
		mcp.WithDescription("List the functions legal at the session's current node, with their parameter schemas."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.handleListFunctions)

	s.mcpServer.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("End the session. An in-flight invocation is abandoned."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.handleEndSession)
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requested := request.GetString("session_id", "")
	id, outcome, err := s.sessions.Start(ctx, strings.TrimSpace(requested))
	if err != nil {
		return s.failure(requested, err), nil
	}
	return result(Response{OK: true, SessionID: id, Outcome: outcome}), nil
}

func (s *Server) handleInvoke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("session_id", "")
	name := request.GetString("function", "")
	if id == "" || name == "" {
		return mcp.NewToolResultError("session_id and function are required"), nil
	}

	var args map[string]any
	switch raw := request.GetArguments()["arguments"].(type) {
	case map[string]any:
		args = raw
	case string:
		// Some clients send nested objects as JSON text.
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("arguments must be a JSON object: %v", err)), nil
			}
		}
	case nil:
	default:
		return mcp.NewToolResultError("arguments must be an object"), nil
	}

	outcome, err := s.sessions.Invoke(ctx, id, name, args)
	if err != nil {
		return s.failure(id, err), nil
	}
	return result(Response{OK: true, SessionID: id, Outcome: outcome}), nil
}

func (s *Server) handleListFunctions(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("session_id", "")
	tools, err := s.sessions.Tools(id)
	if err != nil {
		return s.failure(id, err), nil
	}
	return result(Response{OK: true, SessionID: id, Functions: tools}), nil
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("session_id", "")
	if err := s.sessions.End(ctx, id); err != nil {
		return s.failure(id, err), nil
	}
	return result(Response{OK: true, SessionID: id}), nil
}

func (s *Server) failure(sessionID string, err error) *mcp.CallToolResult {
	failure := domain.Classify(err)
	if failure.Kind == domain.FailureInternal {
		s.logger.Error("MCP tool failed", "session_id", sessionID, "err", err)
	}
	if sessionID != "" {
		if fc, gerr := s.sessions.Get(context.Background(), sessionID); gerr == nil {
			failure.NodeID = fc.CurrentNodeID
		}
	}
	res := result(Response{OK: false, SessionID: sessionID, Failure: &failure})
	res.IsError = true
	return res
}

func result(resp Response) *mcp.CallToolResult {
	data, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode response: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Intake Flow Graph",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(s.flow.Flow(), s.flow.Edges(), nil),
			},
		}, nil
	})
}
