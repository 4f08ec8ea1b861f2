package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/newcast-health/intakeflow"
	"github.com/newcast-health/intakeflow/pkg/adapters/memory"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/scheduling"
	"github.com/newcast-health/intakeflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng, err := intakeflow.New(context.Background(),
		intakeflow.WithCalendar(memory.NewCalendar()),
		intakeflow.WithLocation(time.UTC),
		intakeflow.WithClock(scheduling.FixedClock{T: time.Date(2031, 3, 3, 15, 0, 0, 0, time.UTC)}),
	)
	require.NoError(t, err)
	mgr := session.NewManager(func(id string) session.Conversation { return eng.NewSession(id) })
	return NewServer(mgr, eng, nil)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decode(t *testing.T, res *mcp.CallToolResult) Response {
	t.Helper()
	require.NotEmpty(t, res.Content)
	var text string
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(text), &resp), text)
	return resp
}

func TestServer_SessionTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleStartSession(ctx, call(map[string]any{"session_id": "mcp-1"}))
	require.NoError(t, err)
	started := decode(t, res)
	assert.True(t, started.OK)
	assert.Equal(t, "mcp-1", started.SessionID)
	assert.Equal(t, "collect_info", started.Outcome.NodeID)

	res, err = s.handleListFunctions(ctx, call(map[string]any{"session_id": "mcp-1"}))
	require.NoError(t, err)
	listed := decode(t, res)
	require.Len(t, listed.Functions, 1)
	assert.Equal(t, "collect_patient_info", listed.Functions[0].Name)

	res, err = s.handleInvoke(ctx, call(map[string]any{
		"session_id": "mcp-1",
		"function":   "collect_patient_info",
		"arguments":  map[string]any{"name": "Jane Doe", "birthday": "1990-01-01"},
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	invoked := decode(t, res)
	assert.Equal(t, "get_prescriptions", invoked.Outcome.NodeID)

	res, err = s.handleEndSession(ctx, call(map[string]any{"session_id": "mcp-1"}))
	require.NoError(t, err)
	assert.True(t, decode(t, res).OK)
}

func TestServer_InvokeFailures(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, err := s.handleStartSession(ctx, call(map[string]any{"session_id": "mcp-2"}))
	require.NoError(t, err)

	tests := []struct {
		name string
		args map[string]any
		kind domain.FailureKind
	}{
		{
			name: "Illegal Function",
			args: map[string]any{"session_id": "mcp-2", "function": "complete_intake"},
			kind: domain.FailureIllegalFunction,
		},
		{
			name: "Domain Validation From JSON Text Arguments",
			args: map[string]any{"session_id": "mcp-2", "function": "collect_patient_info", "arguments": `{"name":"Jane","birthday":"2999-01-01"}`},
			kind: domain.FailureDomainValidation,
		},
		{
			name: "Unknown Session",
			args: map[string]any{"session_id": "nope", "function": "collect_patient_info"},
			kind: domain.FailureSession,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleInvoke(ctx, call(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			resp := decode(t, res)
			assert.False(t, resp.OK)
			require.NotNil(t, resp.Failure)
			assert.Equal(t, tt.kind, resp.Failure.Kind)
		})
	}

	res, err := s.handleInvoke(ctx, call(map[string]any{"session_id": "mcp-2"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
